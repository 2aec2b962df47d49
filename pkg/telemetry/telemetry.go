// Package telemetry defines radiosonde telemetry records and the loaders for
// the SondeHub export formats: per-flight log files, three-entry summary
// files (launch, burst, landing) and the amateur archive dump.
package telemetry

import (
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
)

// Record is a single radiosonde telemetry frame.
// Required fields are plain values; fields the upstream feed only sometimes
// carries are pointers so absence survives a JSON round trip.
type Record struct {
	// Serial is the flight's serial number (e.g., "V1854526").
	// For amateur payloads this is filled from payload_callsign by the loader.
	Serial string `json:"serial,omitempty"`

	// PayloadCallsign is the amateur payload identifier, when present
	PayloadCallsign string `json:"payload_callsign,omitempty"`

	// Datetime is the frame timestamp (UTC)
	Datetime time.Time `json:"datetime"`

	// Lat is latitude in decimal degrees
	Lat float64 `json:"lat"`

	// Lon is longitude in decimal degrees
	Lon float64 `json:"lon"`

	// Alt is altitude in meters above mean sea level
	Alt float64 `json:"alt"`

	// Type is the sonde model reported by the decoder (e.g., "RS41-SG")
	Type string `json:"type,omitempty"`

	// Subtype is the finer model designation, when known
	Subtype string `json:"subtype,omitempty"`

	// VelV is vertical velocity in m/s (negative = descending)
	VelV *float64 `json:"vel_v,omitempty"`

	// VelH is horizontal velocity in m/s
	VelH *float64 `json:"vel_h,omitempty"`

	// Heading is ground track in degrees (0-360)
	Heading *float64 `json:"heading,omitempty"`

	// Temp is measured air temperature in degrees C
	Temp *float64 `json:"temp,omitempty"`

	// Humidity is relative humidity in percent
	Humidity *float64 `json:"humidity,omitempty"`

	// Pressure is measured pressure in hPa
	Pressure *float64 `json:"pressure,omitempty"`

	// Frequency is the transmit frequency in MHz
	Frequency *float64 `json:"frequency,omitempty"`

	// Batt is battery voltage in volts
	Batt *float64 `json:"batt,omitempty"`

	// Sats is the number of GNSS satellites used in the fix
	Sats *int `json:"sats,omitempty"`
}

// Position returns the record's location as a geodesy.Position.
func (r Record) Position() geodesy.Position {
	return geodesy.Position{
		Latitude:  r.Lat,
		Longitude: r.Lon,
		Altitude:  r.Alt,
	}
}

// FlightSerial returns the identifier to key this record under: the serial
// when present, otherwise the amateur payload callsign.
func (r Record) FlightSerial() string {
	if r.Serial != "" {
		return r.Serial
	}
	return r.PayloadCallsign
}

// Descending reports whether the frame shows the sonde descending, based on
// the vertical velocity field. Frames without vel_v report false.
func (r Record) Descending() bool {
	return r.VelV != nil && *r.VelV < 0
}

// Flight is a time-ordered telemetry track for a single sonde.
type Flight struct {
	// Serial is the flight's serial number
	Serial string

	// LastTime is the timestamp of the final frame (normally the landing
	// or last-heard position)
	LastTime time.Time

	// Points are the frames in ascending time order, deduplicated by
	// timestamp
	Points []Record
}

// LastPoint returns the final frame of the flight.
// Flights built by the loaders always have at least one point.
func (f *Flight) LastPoint() Record {
	return f.Points[len(f.Points)-1]
}

// Path returns the positions of all points in order, for track building.
func (f *Flight) Path() []geodesy.Position {
	path := make([]geodesy.Position, len(f.Points))
	for i, p := range f.Points {
		path[i] = p.Position()
	}
	return path
}

// MaxAltitude returns the highest altitude in the track (the burst altitude
// for a completed flight).
func (f *Flight) MaxAltitude() float64 {
	max := 0.0
	for _, p := range f.Points {
		if p.Alt > max {
			max = p.Alt
		}
	}
	return max
}
