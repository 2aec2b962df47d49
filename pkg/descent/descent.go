// Package descent estimates when a descending radiosonde reaches the ground.
//
// A sonde under parachute falls faster in thin air, so a measured descent
// rate at altitude is first normalized to its sea-level equivalent, then the
// fall is integrated downward through the density profile.
package descent

import (
	"fmt"
	"math"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/atmosphere"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// altitudeStep is the integration step in meters. 10 m keeps the error well
// under a second over a full stratospheric descent.
const altitudeStep = 10.0

// Estimate is a landing prediction for a descending sonde.
type Estimate struct {
	// SeaLevelRate is the sea-level-equivalent descent rate in m/s,
	// positive downward
	SeaLevelRate float64

	// TimeToGround is how long the sonde needs to reach ground altitude
	TimeToGround time.Duration

	// Touchdown is the predicted landing time
	Touchdown time.Time
}

// RateAt converts a sea-level descent rate back to the rate at altitude.
// The sonde falls faster where the air is thinner.
func RateAt(seaLevelRate, altitude float64) float64 {
	return seaLevelRate / math.Sqrt(atmosphere.Density(altitude)/atmosphere.DensitySeaLevel)
}

// EstimateLanding integrates a descent from altitude down to groundAltitude.
//
// The descent model assumes:
//   - drag equilibrium at every altitude (rate scales with 1/sqrt(density))
//   - no wind drift (horizontal motion is not predicted)
//   - ground altitude known from terrain or the launch site
//
// descentRate is the measured rate at the given altitude in m/s, positive
// downward. at is the observation time the prediction counts from.
func EstimateLanding(altitude, groundAltitude, descentRate float64, at time.Time) (Estimate, error) {
	if descentRate <= 0 {
		return Estimate{}, fmt.Errorf("descent rate %.2f m/s: sonde is not descending", descentRate)
	}
	if altitude <= groundAltitude {
		return Estimate{}, fmt.Errorf("altitude %.0f m is at or below ground %.0f m", altitude, groundAltitude)
	}

	seaLevel := atmosphere.SeaLevelDescentRate(descentRate, altitude)

	seconds := 0.0
	for h := altitude; h > groundAltitude; h -= altitudeStep {
		step := altitudeStep
		if h-groundAltitude < step {
			step = h - groundAltitude
		}
		seconds += step / RateAt(seaLevel, h)
	}

	ttg := time.Duration(seconds * float64(time.Second))
	return Estimate{
		SeaLevelRate: seaLevel,
		TimeToGround: ttg,
		Touchdown:    at.Add(ttg),
	}, nil
}

// EstimateFromRecord predicts the landing from a telemetry frame. The frame
// must carry a negative vertical velocity (SondeHub convention for descent).
func EstimateFromRecord(r telemetry.Record, groundAltitude float64) (Estimate, error) {
	if r.VelV == nil {
		return Estimate{}, fmt.Errorf("frame for %s has no vertical velocity", r.FlightSerial())
	}
	if !r.Descending() {
		return Estimate{}, fmt.Errorf("frame for %s shows ascent (vel_v %.2f m/s)", r.FlightSerial(), *r.VelV)
	}
	return EstimateLanding(r.Alt, groundAltitude, -*r.VelV, r.Datetime)
}
