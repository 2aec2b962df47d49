package geodesy

import (
	"math"
	"testing"
	"time"
)

// TestCalculateSunPosition tests the solar position calculation against
// precomputed values for a mid-latitude observer.
func TestCalculateSunPosition(t *testing.T) {
	observer := Observer{
		Location: Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161},
		Timezone: "America/Chicago",
	}

	tests := []struct {
		name      string
		time      time.Time
		wantElev  float64
		wantAz    float64
		tolerance float64
	}{
		{
			name:      "Early afternoon, 8 April 2024",
			time:      time.Date(2024, 4, 8, 19, 0, 15, 0, time.UTC),
			wantElev:  57.12,
			wantAz:    208.12,
			tolerance: 0.5,
		},
		{
			name:      "Local midnight, 8 April 2024",
			time:      time.Date(2024, 4, 8, 6, 0, 0, 0, time.UTC),
			wantElev:  -45.30,
			wantAz:    359.80,
			tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := CalculateSunPosition(observer, tt.time)

			if math.Abs(sp.Elevation-tt.wantElev) > tt.tolerance {
				t.Errorf("Elevation = %.2f, want %.2f (±%.2f)", sp.Elevation, tt.wantElev, tt.tolerance)
			}
			azDiff := math.Abs(sp.Azimuth - tt.wantAz)
			if azDiff > 180.0 {
				azDiff = 360.0 - azDiff
			}
			if azDiff > tt.tolerance {
				t.Errorf("Azimuth = %.2f, want %.2f (±%.2f)", sp.Azimuth, tt.wantAz, tt.tolerance)
			}
		})
	}
}

// TestTwilightPhases checks the phase thresholds.
func TestTwilightPhases(t *testing.T) {
	tests := []struct {
		elevation float64
		want      TwilightPhase
	}{
		{45.0, PhaseDay},
		{0.0, PhaseDay},       // Disc still partly up
		{-2.0, PhaseCivil},
		{-8.0, PhaseNautical},
		{-15.0, PhaseAstronomical},
		{-30.0, PhaseNight},
	}

	for _, tt := range tests {
		sp := SunPosition{Elevation: tt.elevation}
		if got := sp.Twilight(); got != tt.want {
			t.Errorf("Twilight() at %.1f deg = %s, want %s",
				tt.elevation, TwilightName(got), TwilightName(tt.want))
		}
	}
}

// TestAngularSeparation checks separation for simple geometries.
func TestAngularSeparation(t *testing.T) {
	sp := SunPosition{Elevation: 30.0, Azimuth: 180.0}

	// Same point
	if sep := sp.AngularSeparation(30.0, 180.0); math.Abs(sep) > 0.001 {
		t.Errorf("separation from itself = %.4f, want 0", sep)
	}

	// Straight up from the sun's azimuth
	if sep := sp.AngularSeparation(90.0, 180.0); math.Abs(sep-60.0) > 0.001 {
		t.Errorf("separation to zenith = %.4f, want 60", sep)
	}

	// Opposite azimuth along the horizon plane
	if sep := sp.AngularSeparation(30.0, 0.0); math.Abs(sep-120.0) > 0.5 {
		t.Errorf("separation to opposite azimuth = %.4f, want ~120", sep)
	}
}

// TestJulianDate tests the Julian Date calculation
func TestJulianDate(t *testing.T) {
	// J2000.0 epoch (Jan 1, 2000, 12:00 UTC)
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	jd := julianDate(j2000)
	expected := 2451545.0

	if math.Abs(jd-expected) > 0.001 {
		t.Errorf("Julian Date for J2000.0 = %.3f, want %.3f", jd, expected)
	}

	// Unix epoch (Jan 1, 1970, 00:00 UTC)
	unixEpoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	jd = julianDate(unixEpoch)
	expected = 2440587.5

	if math.Abs(jd-expected) > 0.001 {
		t.Errorf("Julian Date for Unix epoch = %.3f, want %.3f", jd, expected)
	}
}
