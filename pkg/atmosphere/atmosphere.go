// Package atmosphere implements the piecewise standard-atmosphere model used
// for radiosonde descent-rate work. It is a port of the oziplotter Atmosphere
// class: eight altitude bands, each with a base pressure ratio, base
// temperature and temperature gradient, giving air density from sea level up
// through the mesosphere.
package atmosphere

import "math"

// Physical constants for the standard-atmosphere model
const (
	// AirMolWeight is the molecular weight of dry air
	AirMolWeight = 28.9644

	// DensitySeaLevel is the air density at sea level [kg/m3]
	DensitySeaLevel = 1.225

	// PressureSeaLevel is the pressure at sea level [Pa]
	PressureSeaLevel = 101325.0

	// TemperatureSeaLevel is the temperature at sea level [K]
	TemperatureSeaLevel = 288.15

	// Gravity is the acceleration of gravity [m/s2]
	Gravity = 9.80665

	// GasConstant is the universal gas constant [kg/Mol/K]
	GasConstant = 8.31432

	// MaxTableAltitude is the base altitude of the topmost band [m].
	// Above this the model extrapolates with the top band's isothermal
	// formula; results get increasingly unphysical but never error.
	MaxTableAltitude = 84852.0
)

// gMR is the combined gravity * molecular-weight / gas-constant term that
// appears in both pressure formulas.
const gMR = Gravity * AirMolWeight / GasConstant

// band is one row of the standard-atmosphere table.
type band struct {
	baseAltitude  float64 // Band base altitude [m]
	pressureRel   float64 // Pressure ratio (p/p0) at the band base
	baseTemp      float64 // Temperature at the band base [K]
	tempGradPerKm float64 // Temperature gradient [K/km]
}

// bands is the 1976 US Standard Atmosphere layer table, ascending by base
// altitude. Process-wide constant data; never mutated.
var bands = [8]band{
	{0, 1, 288.15, -6.5},
	{11000, 2.23361105092158e-1, 216.65, 0},
	{20000, 5.403295010784876e-2, 216.65, 1},
	{32000, 8.566678359291667e-3, 228.65, 2.8},
	{47000, 1.0945601337771144e-3, 270.65, 0},
	{51000, 6.606353132858367e-4, 270.65, -2.8},
	{71000, 3.904683373343926e-5, 214.65, -2},
	{84852, 3.6850095235747942e-6, 186.946, 0},
}

// bandIndex returns the index of the last band whose base altitude is at or
// below the given altitude. Negative altitudes land in band 0; altitudes
// above the top band land in the top band.
func bandIndex(altitude float64) int {
	i := 0
	for i+1 < len(bands) && altitude > bands[i+1].baseAltitude {
		i++
	}
	return i
}

// evaluate computes temperature [K] and relative pressure (p/p0) at an
// altitude, extrapolating with the containing band's formula.
func evaluate(altitude float64) (temperature, pressureRel float64) {
	b := bands[bandIndex(altitude)]

	tempGrad := b.tempGradPerKm / 1000.0
	deltaAltitude := altitude - b.baseAltitude
	temperature = b.baseTemp + tempGrad*deltaAltitude

	if math.Abs(tempGrad) < 1e-10 {
		// Isothermal band
		pressureRel = b.pressureRel * math.Exp(-gMR*deltaAltitude/1000.0/b.baseTemp)
	} else {
		pressureRel = b.pressureRel * math.Pow(b.baseTemp/temperature, gMR/tempGrad/1000.0)
	}
	return temperature, pressureRel
}

// Density returns the air density [kg/m3] at the given altitude [m].
// Density(0) is exactly DensitySeaLevel. Altitudes outside the table range
// (negative, or above MaxTableAltitude) extrapolate silently.
func Density(altitude float64) float64 {
	temperature, pressureRel := evaluate(altitude)
	return DensitySeaLevel * pressureRel * TemperatureSeaLevel / temperature
}

// Temperature returns the modeled air temperature [K] at the given altitude [m].
func Temperature(altitude float64) float64 {
	temperature, _ := evaluate(altitude)
	return temperature
}

// PressureRatio returns the ratio of pressure at the given altitude [m] to
// sea-level pressure.
func PressureRatio(altitude float64) float64 {
	_, pressureRel := evaluate(altitude)
	return pressureRel
}

// Pressure returns the modeled air pressure [Pa] at the given altitude [m].
func Pressure(altitude float64) float64 {
	return PressureRatio(altitude) * PressureSeaLevel
}

// SeaLevelDescentRate rescales a descent rate measured at altitude to the
// rate the same body would show at sea-level air density, assuming terminal
// velocity under quadratic drag (rate scales with sqrt of density ratio).
// The sign of the input rate is preserved; at 0 m the rate is unchanged.
func SeaLevelDescentRate(descentRate, altitude float64) float64 {
	return descentRate * math.Sqrt(Density(altitude)/DensitySeaLevel)
}
