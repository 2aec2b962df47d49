package geodesy

import (
	"math"
	"time"
)

// SunPosition represents the sun's position in the sky for an observer.
// Visual sonde spotting depends heavily on the sun: a sonde is easiest to
// see when it is still sunlit while the observer sits in twilight.
type SunPosition struct {
	Elevation float64   // Degrees above horizon (refraction corrected near the horizon)
	Azimuth   float64   // Degrees from north
	Time      time.Time // Calculation time
}

// CalculateSunPosition calculates the sun's position for a given observer and time.
// Uses simplified algorithms accurate to about 1 arcminute.
// Based on NOAA solar calculator algorithms.
func CalculateSunPosition(observer Observer, t time.Time) SunPosition {
	utc := t.UTC()

	jd := julianDate(utc)

	// Julian century from J2000.0
	jc := (jd - 2451545.0) / 36525.0

	// Sun's geometric mean longitude (degrees)
	L0 := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360.0)

	// Sun's mean anomaly (degrees)
	M := 357.52911 + jc*(35999.05029-0.0001537*jc)
	Mrad := M * DegreesToRadians

	// Sun's equation of center
	C := math.Sin(Mrad)*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(2*Mrad)*(0.019993-0.000101*jc) +
		math.Sin(3*Mrad)*0.000289

	// Sun's true longitude (degrees)
	sunTrueLong := L0 + C

	// Sun's apparent longitude (degrees), corrected for aberration and nutation
	omega := 125.04 - 1934.136*jc
	lambda := sunTrueLong - 0.00569 - 0.00478*math.Sin(omega*DegreesToRadians)

	// Obliquity of ecliptic (degrees)
	epsilon0 := 23.0 + (26.0+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813))))/60.0/60.0
	epsilon := epsilon0 + 0.00256*math.Cos(omega*DegreesToRadians)

	// Sun's right ascension (degrees)
	lambdaRad := lambda * DegreesToRadians
	epsilonRad := epsilon * DegreesToRadians
	ra := math.Atan2(math.Cos(epsilonRad)*math.Sin(lambdaRad), math.Cos(lambdaRad)) * RadiansToDegrees
	if ra < 0 {
		ra += 360
	}

	// Sun's declination (degrees)
	dec := math.Asin(math.Sin(epsilonRad)*math.Sin(lambdaRad)) * RadiansToDegrees

	// Greenwich mean sidereal time (degrees)
	gmst := math.Mod(280.46061837+360.98564736629*(jd-2451545.0)+
		0.000387933*jc*jc-jc*jc*jc/38710000.0, 360.0)

	// Local sidereal time (degrees)
	lst := math.Mod(gmst+observer.Location.Longitude, 360.0)

	// Hour angle (degrees)
	ha := lst - ra
	if ha < 0 {
		ha += 360
	}
	if ha > 180 {
		ha -= 360
	}

	// Convert to horizontal coordinates
	latRad := observer.Location.Latitude * DegreesToRadians
	decRad := dec * DegreesToRadians
	haRad := ha * DegreesToRadians

	sinEl := math.Sin(latRad)*math.Sin(decRad) + math.Cos(latRad)*math.Cos(decRad)*math.Cos(haRad)
	elevation := math.Asin(sinEl) * RadiansToDegrees

	cosAz := (math.Sin(decRad) - math.Sin(latRad)*sinEl) / (math.Cos(latRad) * math.Cos(elevation*DegreesToRadians))
	// Clamp to prevent domain errors at the poles / zenith
	if cosAz > 1.0 {
		cosAz = 1.0
	}
	if cosAz < -1.0 {
		cosAz = -1.0
	}

	azimuth := math.Acos(cosAz) * RadiansToDegrees
	if math.Sin(haRad) > 0 {
		azimuth = 360.0 - azimuth
	}

	// Atmospheric refraction correction near and above the horizon
	if elevation > -0.833 && elevation < 85.0 {
		tanEl := math.Tan(elevation * DegreesToRadians)
		refraction := 0.0
		if elevation > 5.0 {
			refraction = 58.1/tanEl - 0.07/(tanEl*tanEl*tanEl) + 0.000086/(tanEl*tanEl*tanEl*tanEl*tanEl)
		} else if elevation > -0.575 {
			refraction = 1735.0 + elevation*(-518.2+elevation*(103.4+elevation*(-12.79+elevation*0.711)))
		}
		elevation += refraction / 3600.0 // arcseconds to degrees
	}

	return SunPosition{
		Elevation: elevation,
		Azimuth:   azimuth,
		Time:      t,
	}
}

// AboveHorizon returns true if any part of the sun's disc is above the horizon.
func (sp SunPosition) AboveHorizon() bool {
	return sp.Elevation > -0.833 // Accounts for the sun's radius and refraction
}

// AngularSeparation calculates the angular distance between the sun and a
// point in the sky given by elevation and azimuth. Returns degrees.
// Sondes within a few degrees of the sun are effectively invisible.
func (sp SunPosition) AngularSeparation(elevation, azimuth float64) float64 {
	sunElRad := sp.Elevation * DegreesToRadians
	sunAzRad := sp.Azimuth * DegreesToRadians
	targetElRad := elevation * DegreesToRadians
	targetAzRad := azimuth * DegreesToRadians

	dAz := targetAzRad - sunAzRad

	sinDist := math.Sqrt(
		math.Pow(math.Cos(targetElRad)*math.Sin(dAz), 2) +
			math.Pow(math.Cos(sunElRad)*math.Sin(targetElRad)-
				math.Sin(sunElRad)*math.Cos(targetElRad)*math.Cos(dAz), 2),
	)

	cosDist := math.Sin(sunElRad)*math.Sin(targetElRad) +
		math.Cos(sunElRad)*math.Cos(targetElRad)*math.Cos(dAz)

	return math.Atan2(sinDist, cosDist) * RadiansToDegrees
}

// TwilightPhase classifies the sky brightness at the observer.
type TwilightPhase int

const (
	PhaseDay          TwilightPhase = 0 // Sun above the horizon
	PhaseCivil        TwilightPhase = 1 // Sun 0 to -6 degrees
	PhaseNautical     TwilightPhase = 2 // Sun -6 to -12 degrees
	PhaseAstronomical TwilightPhase = 3 // Sun -12 to -18 degrees
	PhaseNight        TwilightPhase = 4 // Sun below -18 degrees
)

// Twilight returns the twilight phase for this sun position.
// Civil and nautical twilight are the prime windows for spotting a sunlit
// sonde against a darkening sky.
func (sp SunPosition) Twilight() TwilightPhase {
	switch {
	case sp.AboveHorizon():
		return PhaseDay
	case sp.Elevation > -6.0:
		return PhaseCivil
	case sp.Elevation > -12.0:
		return PhaseNautical
	case sp.Elevation > -18.0:
		return PhaseAstronomical
	default:
		return PhaseNight
	}
}

// TwilightName returns a human-readable name for a twilight phase.
func TwilightName(phase TwilightPhase) string {
	switch phase {
	case PhaseDay:
		return "DAY"
	case PhaseCivil:
		return "CIVIL TWILIGHT"
	case PhaseNautical:
		return "NAUTICAL TWILIGHT"
	case PhaseAstronomical:
		return "ASTRONOMICAL TWILIGHT"
	case PhaseNight:
		return "NIGHT"
	default:
		return "UNKNOWN"
	}
}

// julianDate calculates the Julian Date from a time.Time
func julianDate(t time.Time) float64 {
	year := t.Year()
	month := int(t.Month())
	day := t.Day()
	hour := t.Hour()
	minute := t.Minute()
	second := t.Second()

	// Adjust for January and February
	if month <= 2 {
		year--
		month += 12
	}

	// Julian day number
	a := year / 100
	b := 2 - a + a/4

	jd := float64(int(365.25*float64(year+4716))) +
		float64(int(30.6001*float64(month+1))) +
		float64(day+b) - 1524.5

	// Add fractional day
	dayFraction := (float64(hour) + float64(minute)/60.0 + float64(second)/3600.0) / 24.0
	jd += dayFraction

	return jd
}
