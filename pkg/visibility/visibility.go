// Package visibility answers "which sondes could this observer have seen":
// it folds telemetry records against an observer position, a reference time
// and an elevation cutoff, keeping the sondes that were above the horizon
// mask inside the time window.
package visibility

import (
	"sort"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// Criteria is an observer-side visibility question: position, reference
// time, minimum elevation and how far either side of the reference time a
// record may fall.
type Criteria struct {
	// Observer is the observer's position (lat/lon degrees, altitude meters)
	Observer geodesy.Position

	// Time is the reference time records are compared against
	Time time.Time

	// MinElevation is the elevation cutoff in degrees. A record matches
	// only when its elevation is strictly above this value.
	MinElevation float64

	// Window is the half-width of the time window. A record matches only
	// when |Time - record time| is strictly inside it.
	Window time.Duration
}

// Check computes the look angle from the observer to the record and reports
// whether the record satisfies the criteria. Both comparisons are strict:
// a record exactly at the elevation cutoff or exactly at the window edge
// does not match.
func (c Criteria) Check(r telemetry.Record) (geodesy.LookAngle, bool) {
	la := geodesy.ComputeLookAngle(c.Observer, r.Position())
	if la.Elevation <= c.MinElevation {
		return la, false
	}

	diff := c.Time.Sub(r.Datetime)
	if diff < 0 {
		diff = -diff
	}
	return la, diff < c.Window
}

// MatchSet holds the matching record per sonde, keyed by serial.
type MatchSet map[string]telemetry.Record

// FindVisible folds records in input order and returns the matches keyed by
// serial. When several records for the same serial match, the LAST one in
// input order wins; a later non-matching record never erases an earlier
// match. The fold has no hidden state, so running it twice over the same
// input yields the same set.
func FindVisible(c Criteria, records []telemetry.Record) MatchSet {
	matches := make(MatchSet)
	for _, r := range records {
		if _, ok := c.Check(r); ok {
			matches[r.FlightSerial()] = r
		}
	}
	return matches
}

// Serials returns the matched serials in ascending order. Map iteration
// order is randomized, so anything written to a file goes through this.
func (m MatchSet) Serials() []string {
	serials := make([]string, 0, len(m))
	for serial := range m {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}
