package geodesy

import (
	"math"
)

// Constants for geodesic calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusMeters is the spherical Earth radius used by the look-angle
	// solver, in meters. This is the radius the oziplotter-era balloon
	// trackers use, not the WGS84 mean radius (6371 km). Changing it shifts
	// every distance and elevation result.
	EarthRadiusMeters = 6364963.0
)

// Position represents a point relative to the Earth's surface.
// Coordinates use the same datum as GPS receivers report.
type Position struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// Observer represents the geographic location of a ground observer.
// All look-angle calculations are relative to an observer position.
type Observer struct {
	// Location is the observer's position on Earth
	Location Position

	// Timezone is the IANA timezone name (e.g., "America/Chicago")
	// Used for display only; all internal calculations use UTC
	Timezone string
}

// LookAngle describes where a target appears in the sky from an observer,
// plus how far away it is along the surface and through the air.
// Angles are carried in both degrees and radians so callers never have to
// re-convert.
type LookAngle struct {
	// Bearing in degrees clockwise from true north, normalized to [0, 360)
	Bearing float64

	// BearingRadians is the same bearing in radians, [0, 2π)
	BearingRadians float64

	// Elevation in degrees above the observer's local horizontal plane.
	// Negative when the target is below the horizon. Never normalized.
	Elevation float64

	// ElevationRadians is the same elevation in radians
	ElevationRadians float64

	// AngleAtCentre is the angle subtended at the Earth's centre between
	// observer and target, in degrees
	AngleAtCentre float64

	// AngleAtCentreRadians is the same angle in radians
	AngleAtCentreRadians float64

	// GreatCircleDistance is the surface distance between the horizontal
	// projections of observer and target, in meters
	GreatCircleDistance float64

	// StraightLineDistance is the direct chord distance through space
	// between the two points, accounting for both altitudes, in meters
	StraightLineDistance float64
}

// ToRadians converts the Position's angular coordinates to radians.
// Returns (latRad, lonRad, altMeters).
func (p Position) ToRadians() (float64, float64, float64) {
	return p.Latitude * DegreesToRadians,
		p.Longitude * DegreesToRadians,
		p.Altitude
}

// NormalizeBearing ensures a bearing is in the range [0, 360).
func NormalizeBearing(bearing float64) float64 {
	b := math.Mod(bearing, 360.0)
	if b < 0 {
		b += 360.0
	}
	return b
}

// ComputeLookAngle calculates bearing, elevation and distances from an
// observer to a target on a spherical Earth of radius EarthRadiusMeters.
//
// Bearing, the angle at the Earth's centre and the great-circle distance come
// from Vincenty's formulae with flattening = 0 (a sphere). Elevation and the
// straight-line distance come from the planar triangle with sides
// (radius+alt1) and (radius+alt2) separated by the angle at the centre.
//
// Degenerate inputs are not guarded: coincident positions produce a bearing
// of 0 via atan2(0,0), and a target straight overhead produces +90 degrees
// elevation. Antipodal points produce an angle at centre of π. None of these
// panic; callers get the raw floating-point result.
func ComputeLookAngle(observer, target Position) LookAngle {
	lat1, lon1, alt1 := observer.ToRadians()
	lat2, lon2, alt2 := target.ToRadians()

	dLon := lon2 - lon1
	sa := math.Cos(lat2) * math.Sin(dLon)
	sb := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(sa, sb)

	aa := math.Sqrt(sa*sa + sb*sb)
	ab := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(dLon)
	angleAtCentre := math.Atan2(aa, ab)

	greatCircle := angleAtCentre * EarthRadiusMeters

	// Planar triangle: sides (r+alt1) and (r+alt2) with the angle at the
	// centre between them. The angle between the chord and (r+alt1) is the
	// elevation plus π/2; solve for tan(elevation) via the compound-angle
	// expansion, and the chord itself via the cosine rule.
	ta := EarthRadiusMeters + alt1
	tb := EarthRadiusMeters + alt2
	elevation := math.Atan2(math.Cos(angleAtCentre)*tb-ta, math.Sin(angleAtCentre)*tb)
	straight := math.Sqrt(ta*ta + tb*tb - 2*ta*tb*math.Cos(angleAtCentre))

	// Bearing into [0, 2π)
	if bearing < 0 {
		bearing += 2 * math.Pi
	}

	return LookAngle{
		Bearing:              bearing * RadiansToDegrees,
		BearingRadians:       bearing,
		Elevation:            elevation * RadiansToDegrees,
		ElevationRadians:     elevation,
		AngleAtCentre:        angleAtCentre * RadiansToDegrees,
		AngleAtCentreRadians: angleAtCentre,
		GreatCircleDistance:  greatCircle,
		StraightLineDistance: straight,
	}
}

// GreatCircleDistance returns only the surface distance between two
// positions, in meters. Convenience wrapper over ComputeLookAngle for
// callers that do not need the full result.
func GreatCircleDistance(from, to Position) float64 {
	return ComputeLookAngle(from, to).GreatCircleDistance
}
