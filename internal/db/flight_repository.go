package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// Flight is an archived flight row. The three summary positions are pointers
// so a live-only flight (seen by the archiver but not yet summarized) reads
// back with them absent.
type Flight struct {
	Serial      string    `json:"serial"`
	SondeType   string    `json:"sondeType,omitempty"`
	Subtype     string    `json:"subtype,omitempty"`
	Launch      *Waypoint `json:"launch,omitempty"`
	Burst       *Waypoint `json:"burst,omitempty"`
	Landing     *Waypoint `json:"landing,omitempty"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Waypoint is one of the three summary positions of a flight.
type Waypoint struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Alt  float64   `json:"alt"`
	Time time.Time `json:"time"`
}

// SummaryRecords converts the stored launch/burst/landing positions back to
// telemetry records, for running the visibility filter over archived flights.
func (f *Flight) SummaryRecords() []telemetry.Record {
	var records []telemetry.Record
	for _, wp := range []*Waypoint{f.Launch, f.Burst, f.Landing} {
		if wp == nil {
			continue
		}
		records = append(records, telemetry.Record{
			Serial:   f.Serial,
			Type:     f.SondeType,
			Subtype:  f.Subtype,
			Datetime: wp.Time,
			Lat:      wp.Lat,
			Lon:      wp.Lon,
			Alt:      wp.Alt,
		})
	}
	return records
}

// FlightRepository handles database operations for archived flights.
type FlightRepository struct {
	db *DB
}

// NewFlightRepository creates a new flight repository.
func NewFlightRepository(db *DB) *FlightRepository {
	return &FlightRepository{db: db}
}

// flightColumns is the column list every flight query selects, in the order
// scanFlight expects.
const flightColumns = `serial, sonde_type, subtype,
	launch_lat, launch_lon, launch_alt, launch_time,
	burst_lat, burst_lon, burst_alt, burst_time,
	landing_lat, landing_lon, landing_alt, landing_time,
	first_seen, last_updated`

// UpsertSummary stores a three-record summary (launch, burst, landing) for a
// flight, replacing any summary already archived under the serial.
func (r *FlightRepository) UpsertSummary(ctx context.Context, summary []telemetry.Record) error {
	if len(summary) != telemetry.SummaryEntryCount {
		return fmt.Errorf("summary must have %d records, got %d",
			telemetry.SummaryEntryCount, len(summary))
	}

	launch, burst, landing := summary[0], summary[1], summary[2]
	serial := launch.FlightSerial()
	if serial == "" {
		return fmt.Errorf("summary has no serial")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flights (
			serial, sonde_type, subtype,
			launch_lat, launch_lon, launch_alt, launch_time,
			burst_lat, burst_lon, burst_alt, burst_time,
			landing_lat, landing_lon, landing_alt, landing_time,
			first_seen, last_updated
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			NOW(), NOW()
		)
		ON CONFLICT (serial) DO UPDATE SET
			sonde_type = EXCLUDED.sonde_type,
			subtype = EXCLUDED.subtype,
			launch_lat = EXCLUDED.launch_lat,
			launch_lon = EXCLUDED.launch_lon,
			launch_alt = EXCLUDED.launch_alt,
			launch_time = EXCLUDED.launch_time,
			burst_lat = EXCLUDED.burst_lat,
			burst_lon = EXCLUDED.burst_lon,
			burst_alt = EXCLUDED.burst_alt,
			burst_time = EXCLUDED.burst_time,
			landing_lat = EXCLUDED.landing_lat,
			landing_lon = EXCLUDED.landing_lon,
			landing_alt = EXCLUDED.landing_alt,
			landing_time = EXCLUDED.landing_time,
			last_updated = NOW()`,
		serial, launch.Type, launch.Subtype,
		launch.Lat, launch.Lon, launch.Alt, launch.Datetime,
		burst.Lat, burst.Lon, burst.Alt, burst.Datetime,
		landing.Lat, landing.Lon, landing.Alt, landing.Datetime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight %s: %w", serial, err)
	}

	return nil
}

// UpsertLive records a flight seen in the live feed, creating the row when
// the serial is new and refreshing sonde type and last_updated otherwise.
// Summary columns are left to UpsertSummary.
func (r *FlightRepository) UpsertLive(ctx context.Context, rec telemetry.Record) error {
	serial := rec.FlightSerial()
	if serial == "" {
		return fmt.Errorf("record has no serial")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flights (serial, sonde_type, subtype, first_seen, last_updated)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (serial) DO UPDATE SET
			sonde_type = COALESCE(NULLIF(EXCLUDED.sonde_type, ''), flights.sonde_type),
			subtype = COALESCE(NULLIF(EXCLUDED.subtype, ''), flights.subtype),
			last_updated = NOW()`,
		serial, rec.Type, rec.Subtype,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight %s: %w", serial, err)
	}

	return nil
}

// GetFlight retrieves a flight by serial. Returns nil, nil when the serial
// is not archived.
func (r *FlightRepository) GetFlight(ctx context.Context, serial string) (*Flight, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE serial = $1`,
		serial,
	)

	f, err := scanFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flight %s: %w", serial, err)
	}

	return f, nil
}

// ListFlights returns archived flights newest-first.
func (r *FlightRepository) ListFlights(ctx context.Context, limit, offset int) ([]*Flight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+flightColumns+`
		 FROM flights
		 ORDER BY last_updated DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	return collectFlights(rows)
}

// FlightsInWindow returns summarized flights airborne during any part of the
// window, ordered by serial. Used as the candidate set for visibility
// searches over the archive; the filter applies the exact per-record check.
func (r *FlightRepository) FlightsInWindow(ctx context.Context, from, to time.Time) ([]*Flight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+flightColumns+`
		 FROM flights
		 WHERE launch_time IS NOT NULL
		   AND landing_time IS NOT NULL
		   AND launch_time <= $2
		   AND landing_time >= $1
		 ORDER BY serial ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights in window: %w", err)
	}
	defer rows.Close()

	return collectFlights(rows)
}

// CountByType returns archived flight counts grouped by sonde type.
func (r *FlightRepository) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(NULLIF(sonde_type, ''), 'unknown'), COUNT(*)
		 FROM flights
		 GROUP BY 1
		 ORDER BY 2 DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count flights by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sondeType string
		var count int
		if err := rows.Scan(&sondeType, &count); err != nil {
			return nil, err
		}
		counts[sondeType] = count
	}

	return counts, rows.Err()
}

// flightScanner lets scanFlight work on both QueryRow and Rows.
type flightScanner interface {
	Scan(dest ...interface{}) error
}

func scanFlight(row flightScanner) (*Flight, error) {
	var (
		f                  Flight
		sondeType, subtype sql.NullString

		launchLat, launchLon, launchAlt    sql.NullFloat64
		burstLat, burstLon, burstAlt       sql.NullFloat64
		landingLat, landingLon, landingAlt sql.NullFloat64

		launchTime, burstTime, landingTime sql.NullTime
	)

	err := row.Scan(
		&f.Serial, &sondeType, &subtype,
		&launchLat, &launchLon, &launchAlt, &launchTime,
		&burstLat, &burstLon, &burstAlt, &burstTime,
		&landingLat, &landingLon, &landingAlt, &landingTime,
		&f.FirstSeen, &f.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	f.SondeType = sondeType.String
	f.Subtype = subtype.String
	f.Launch = waypoint(launchLat, launchLon, launchAlt, launchTime)
	f.Burst = waypoint(burstLat, burstLon, burstAlt, burstTime)
	f.Landing = waypoint(landingLat, landingLon, landingAlt, landingTime)

	return &f, nil
}

// waypoint folds nullable summary columns into a Waypoint, or nil when the
// position was never stored.
func waypoint(lat, lon, alt sql.NullFloat64, t sql.NullTime) *Waypoint {
	if !lat.Valid || !lon.Valid || !t.Valid {
		return nil
	}
	return &Waypoint{
		Lat:  lat.Float64,
		Lon:  lon.Float64,
		Alt:  alt.Float64,
		Time: t.Time,
	}
}

func collectFlights(rows *sql.Rows) ([]*Flight, error) {
	var flights []*Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}
