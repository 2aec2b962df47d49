package descent

import (
	"math"
	"testing"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

func TestEstimateLanding(t *testing.T) {
	at := time.Date(2024, 4, 8, 19, 0, 15, 0, time.UTC)

	tests := []struct {
		name         string
		altitude     float64
		ground       float64
		rate         float64
		wantSeaLevel float64
		wantSeconds  float64
	}{
		{
			name:         "stratospheric descent to prairie",
			altitude:     25000.0,
			ground:       200.0,
			rate:         20.0,
			wantSeaLevel: 3.5898186,
			wantSeconds:  3559.4248,
		},
		{
			name:         "low level descent",
			altitude:     5000.0,
			ground:       161.0,
			rate:         8.0,
			wantSeaLevel: 6.2014755,
			wantSeconds:  687.5573,
		},
		{
			name:         "final kilometer",
			altitude:     1000.0,
			ground:       0.0,
			rate:         5.0,
			wantSeaLevel: 4.7630435,
			wantSeconds:  204.9038,
		},
		{
			name:         "slow high altitude drift down",
			altitude:     30000.0,
			ground:       161.0,
			rate:         18.0,
			wantSeaLevel: 2.1826531,
			wantSeconds:  6211.6577,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := EstimateLanding(tt.altitude, tt.ground, tt.rate, at)
			if err != nil {
				t.Fatalf("EstimateLanding() error = %v", err)
			}

			if math.Abs(est.SeaLevelRate-tt.wantSeaLevel) > 1e-6 {
				t.Errorf("SeaLevelRate = %.7f, want %.7f", est.SeaLevelRate, tt.wantSeaLevel)
			}

			gotSeconds := est.TimeToGround.Seconds()
			if math.Abs(gotSeconds-tt.wantSeconds) > 0.01 {
				t.Errorf("TimeToGround = %.4fs, want %.4fs", gotSeconds, tt.wantSeconds)
			}

			wantTouchdown := at.Add(est.TimeToGround)
			if !est.Touchdown.Equal(wantTouchdown) {
				t.Errorf("Touchdown = %v, want %v", est.Touchdown, wantTouchdown)
			}
		})
	}
}

func TestEstimateLandingRejectsBadInput(t *testing.T) {
	at := time.Now()

	if _, err := EstimateLanding(25000.0, 200.0, 0.0, at); err == nil {
		t.Error("accepted zero descent rate")
	}
	if _, err := EstimateLanding(25000.0, 200.0, -5.0, at); err == nil {
		t.Error("accepted negative descent rate")
	}
	if _, err := EstimateLanding(150.0, 200.0, 5.0, at); err == nil {
		t.Error("accepted altitude below ground")
	}
	if _, err := EstimateLanding(200.0, 200.0, 5.0, at); err == nil {
		t.Error("accepted altitude equal to ground")
	}
}

func TestRateAt(t *testing.T) {
	// Same sea-level rate must fall faster aloft than near the ground.
	slow := RateAt(3.5898186, 200.0)
	fast := RateAt(3.5898186, 25000.0)
	if fast <= slow {
		t.Errorf("RateAt() at 25 km (%.4f) not faster than at 200 m (%.4f)", fast, slow)
	}
	if math.Abs(slow-3.6245266) > 1e-6 {
		t.Errorf("RateAt(3.5898186, 200) = %.7f, want 3.6245266", slow)
	}

	// Sea level is the identity point.
	if got := RateAt(5.0, 0.0); got != 5.0 {
		t.Errorf("RateAt(5, 0) = %v, want exactly 5", got)
	}
}

func TestEstimateFromRecord(t *testing.T) {
	at := time.Date(2024, 4, 8, 19, 0, 15, 0, time.UTC)
	down := -20.0
	up := 5.0

	r := telemetry.Record{
		Serial:   "V1854526",
		Datetime: at,
		Lat:      37.43,
		Lon:      -89.64,
		Alt:      25000.0,
		VelV:     &down,
	}

	est, err := EstimateFromRecord(r, 200.0)
	if err != nil {
		t.Fatalf("EstimateFromRecord() error = %v", err)
	}
	if math.Abs(est.SeaLevelRate-3.5898186) > 1e-6 {
		t.Errorf("SeaLevelRate = %.7f, want 3.5898186", est.SeaLevelRate)
	}
	if !est.Touchdown.After(at) {
		t.Error("Touchdown not after observation time")
	}

	r.VelV = &up
	if _, err := EstimateFromRecord(r, 200.0); err == nil {
		t.Error("accepted ascending frame")
	}

	r.VelV = nil
	if _, err := EstimateFromRecord(r, 200.0); err == nil {
		t.Error("accepted frame without vertical velocity")
	}
}
