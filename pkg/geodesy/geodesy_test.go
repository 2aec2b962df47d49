package geodesy

import (
	"math"
	"testing"
)

// TestComputeLookAngle tests the look-angle solver against precomputed values.
func TestComputeLookAngle(t *testing.T) {
	tests := []struct {
		name         string
		observer     Position
		target       Position
		wantBearing  float64
		wantElev     float64
		wantGC       float64 // Great-circle distance (meters)
		wantStraight float64 // Straight-line distance (meters)
		tolerance    float64 // Angular tolerance (degrees)
		distTol      float64 // Distance tolerance (meters)
	}{
		{
			name:         "Sonde directly overhead",
			observer:     Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161},
			target:       Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 1000},
			wantBearing:  0.0,
			wantElev:     90.0,
			wantGC:       0.0,
			wantStraight: 839.0,
			tolerance:    0.0001,
			distTol:      0.001,
		},
		{
			name:         "One degree north along the meridian at the surface",
			observer:     Position{Latitude: 0, Longitude: 0, Altitude: 0},
			target:       Position{Latitude: 1, Longitude: 0, Altitude: 0},
			wantBearing:  0.0,
			wantElev:     -0.5, // Half the subtended angle below the horizon
			wantGC:       111089.56,
			wantStraight: 111088.15,
			tolerance:    0.001,
			distTol:      0.5,
		},
		{
			name:         "Sonde aloft to the northeast",
			observer:     Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161},
			target:       Position{Latitude: 38.20, Longitude: -88.90, Altitude: 12000},
			wantBearing:  37.113,
			wantElev:     5.789,
			wantGC:       107588.92,
			wantStraight: 108339.18,
			tolerance:    0.01,
			distTol:      1.0,
		},
		{
			name:         "Distant sonde below the horizon",
			observer:     Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161},
			target:       Position{Latitude: 40.0, Longitude: -95.0, Altitude: 500},
			wantBearing:  303.244,
			wantElev:     -2.417,
			wantGC:       544892.90,
			wantStraight: 544754.92,
			tolerance:    0.01,
			distTol:      1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeLookAngle(tt.observer, tt.target)

			if math.Abs(result.Bearing-tt.wantBearing) > tt.tolerance {
				t.Errorf("Bearing = %.4f, want %.4f (±%.4f)", result.Bearing, tt.wantBearing, tt.tolerance)
			}
			if math.Abs(result.Elevation-tt.wantElev) > tt.tolerance {
				t.Errorf("Elevation = %.4f, want %.4f (±%.4f)", result.Elevation, tt.wantElev, tt.tolerance)
			}
			if math.Abs(result.GreatCircleDistance-tt.wantGC) > tt.distTol {
				t.Errorf("GreatCircleDistance = %.2f, want %.2f (±%.2f)", result.GreatCircleDistance, tt.wantGC, tt.distTol)
			}
			if math.Abs(result.StraightLineDistance-tt.wantStraight) > tt.distTol {
				t.Errorf("StraightLineDistance = %.2f, want %.2f (±%.2f)", result.StraightLineDistance, tt.wantStraight, tt.distTol)
			}
		})
	}
}

// TestLookAngleDistanceSymmetry verifies that both distance measures are
// symmetric in their endpoints.
func TestLookAngleDistanceSymmetry(t *testing.T) {
	pairs := []struct {
		name string
		a, b Position
	}{
		{
			name: "Observer to sonde aloft",
			a:    Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161},
			b:    Position{Latitude: 38.0, Longitude: -90.5, Altitude: 12000},
		},
		{
			name: "Across the equator",
			a:    Position{Latitude: -10.0, Longitude: 140.0, Altitude: 50},
			b:    Position{Latitude: 15.0, Longitude: 150.0, Altitude: 28000},
		},
		{
			name: "Across the antimeridian",
			a:    Position{Latitude: -35.0, Longitude: 179.5, Altitude: 10},
			b:    Position{Latitude: -34.0, Longitude: -179.5, Altitude: 5000},
		},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			fwd := ComputeLookAngle(tt.a, tt.b)
			rev := ComputeLookAngle(tt.b, tt.a)

			if math.Abs(fwd.GreatCircleDistance-rev.GreatCircleDistance) > 1e-6 {
				t.Errorf("great-circle distance not symmetric: %.9f vs %.9f",
					fwd.GreatCircleDistance, rev.GreatCircleDistance)
			}
			if math.Abs(fwd.StraightLineDistance-rev.StraightLineDistance) > 1e-6 {
				t.Errorf("straight-line distance not symmetric: %.9f vs %.9f",
					fwd.StraightLineDistance, rev.StraightLineDistance)
			}
		})
	}
}

// TestLookAngleBearingRange checks that the bearing is always normalized into
// [0, 360) for targets in every quadrant around the observer.
func TestLookAngleBearingRange(t *testing.T) {
	observer := Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161}

	for _, dLat := range []float64{-5, -1, -0.1, 0, 0.1, 1, 5} {
		for _, dLon := range []float64{-5, -1, -0.1, 0, 0.1, 1, 5} {
			target := Position{
				Latitude:  observer.Latitude + dLat,
				Longitude: observer.Longitude + dLon,
				Altitude:  20000,
			}
			result := ComputeLookAngle(observer, target)
			if result.Bearing < 0 || result.Bearing >= 360 {
				t.Errorf("bearing out of range [0, 360) for offset (%+.1f, %+.1f): %.4f",
					dLat, dLon, result.Bearing)
			}
		}
	}
}

// TestLookAngleDegenerateInputs makes sure the solver tolerates coincident
// and antipodal positions without panicking.
func TestLookAngleDegenerateInputs(t *testing.T) {
	p := Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161}

	// Fully coincident: distance 0, bearing 0 from atan2(0,0)
	same := ComputeLookAngle(p, p)
	if same.Bearing != 0 {
		t.Errorf("coincident bearing = %.4f, want 0", same.Bearing)
	}
	if same.StraightLineDistance != 0 {
		t.Errorf("coincident straight-line distance = %.4f, want 0", same.StraightLineDistance)
	}

	// Antipodal: angle at centre is π, distance is half the circumference
	anti := ComputeLookAngle(
		Position{Latitude: 10.0, Longitude: 20.0, Altitude: 0},
		Position{Latitude: -10.0, Longitude: -160.0, Altitude: 0},
	)
	wantGC := math.Pi * EarthRadiusMeters
	if math.Abs(anti.GreatCircleDistance-wantGC) > 1.0 {
		t.Errorf("antipodal great-circle distance = %.2f, want %.2f", anti.GreatCircleDistance, wantGC)
	}
	if math.IsNaN(anti.Bearing) || math.IsNaN(anti.Elevation) {
		t.Error("antipodal inputs produced NaN angles")
	}
}

// TestLookAngleRadianForms verifies the degree and radian forms agree.
func TestLookAngleRadianForms(t *testing.T) {
	observer := Position{Latitude: 37.4300, Longitude: -89.6436, Altitude: 161}
	target := Position{Latitude: 38.20, Longitude: -88.90, Altitude: 12000}

	result := ComputeLookAngle(observer, target)

	if math.Abs(result.Bearing-result.BearingRadians*RadiansToDegrees) > 1e-9 {
		t.Errorf("bearing forms disagree: %.6f deg vs %.6f rad", result.Bearing, result.BearingRadians)
	}
	if math.Abs(result.Elevation-result.ElevationRadians*RadiansToDegrees) > 1e-9 {
		t.Errorf("elevation forms disagree: %.6f deg vs %.6f rad", result.Elevation, result.ElevationRadians)
	}
	if math.Abs(result.AngleAtCentre-result.AngleAtCentreRadians*RadiansToDegrees) > 1e-9 {
		t.Errorf("angle-at-centre forms disagree: %.6f deg vs %.6f rad", result.AngleAtCentre, result.AngleAtCentreRadians)
	}
}

// TestNormalizeBearing tests bearing normalization
func TestNormalizeBearing(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{0.0, 0.0},
		{359.0, 359.0},
		{360.0, 0.0},
		{361.0, 1.0},
		{-1.0, 359.0},
		{-90.0, 270.0},
		{720.0, 0.0},
	}

	for _, tt := range tests {
		got := NormalizeBearing(tt.input)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("NormalizeBearing(%.1f) = %.1f, want %.1f", tt.input, got, tt.want)
		}
	}
}
