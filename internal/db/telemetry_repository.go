package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// TelemetryRepository handles storage of raw telemetry points.
type TelemetryRepository struct {
	db *DB
}

// NewTelemetryRepository creates a new telemetry repository.
func NewTelemetryRepository(db *DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// pointColumns is the column list every point query selects, in the order
// scanPoint expects.
const pointColumns = `serial, time, lat, lon, alt,
	vel_v, vel_h, heading, temp, humidity, frequency`

// InsertPoints stores telemetry frames in one transaction, skipping any
// (serial, time) pair already archived. Frames without a serial or timestamp
// are dropped. Returns the number of rows actually inserted.
func (r *TelemetryRepository) InsertPoints(ctx context.Context, records []telemetry.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO telemetry_points (
			serial, time, lat, lon, alt,
			vel_v, vel_h, heading, temp, humidity, frequency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (serial, time) DO NOTHING`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		serial := rec.FlightSerial()
		if serial == "" || rec.Datetime.IsZero() {
			continue
		}

		res, err := stmt.ExecContext(ctx,
			serial, rec.Datetime, rec.Lat, rec.Lon, rec.Alt,
			nullFloat(rec.VelV), nullFloat(rec.VelH), nullFloat(rec.Heading),
			nullFloat(rec.Temp), nullFloat(rec.Humidity), nullFloat(rec.Frequency),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert point %s@%s: %w",
				serial, rec.Datetime.Format(time.RFC3339), err)
		}

		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit points: %w", err)
	}

	return inserted, nil
}

// LatestPositions returns the newest archived point per serial, bounded to
// points no older than maxAge. Ordered by serial for stable display.
func (r *TelemetryRepository) LatestPositions(ctx context.Context, maxAge time.Duration) ([]telemetry.Record, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (serial) `+pointColumns+`
		 FROM telemetry_points
		 WHERE time > $1
		 ORDER BY serial ASC, time DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest positions: %w", err)
	}
	defer rows.Close()

	return collectPoints(rows)
}

// PointsForFlight returns a flight's archived track in ascending time order.
func (r *TelemetryRepository) PointsForFlight(ctx context.Context, serial string) ([]telemetry.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pointColumns+`
		 FROM telemetry_points
		 WHERE serial = $1
		 ORDER BY time ASC`,
		serial,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query points for %s: %w", serial, err)
	}
	defer rows.Close()

	return collectPoints(rows)
}

// FlightTrack assembles the archived points for a serial into a Flight.
// Returns nil, nil when the serial has no archived points.
func (r *TelemetryRepository) FlightTrack(ctx context.Context, serial string) (*telemetry.Flight, error) {
	points, err := r.PointsForFlight(ctx, serial)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	return &telemetry.Flight{
		Serial:   serial,
		LastTime: points[len(points)-1].Datetime,
		Points:   points,
	}, nil
}

// CountPoints returns the number of archived points for a serial.
func (r *TelemetryRepository) CountPoints(ctx context.Context, serial string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM telemetry_points WHERE serial = $1`,
		serial,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count points for %s: %w", serial, err)
	}
	return count, nil
}

func scanPoint(rows *sql.Rows) (telemetry.Record, error) {
	var (
		rec telemetry.Record

		velV, velH, heading, temp, humidity, frequency sql.NullFloat64
	)

	err := rows.Scan(
		&rec.Serial, &rec.Datetime, &rec.Lat, &rec.Lon, &rec.Alt,
		&velV, &velH, &heading, &temp, &humidity, &frequency,
	)
	if err != nil {
		return rec, err
	}

	rec.VelV = floatPtr(velV)
	rec.VelH = floatPtr(velH)
	rec.Heading = floatPtr(heading)
	rec.Temp = floatPtr(temp)
	rec.Humidity = floatPtr(humidity)
	rec.Frequency = floatPtr(frequency)

	return rec, nil
}

func collectPoints(rows *sql.Rows) ([]telemetry.Record, error) {
	var points []telemetry.Record
	for rows.Next() {
		rec, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, rec)
	}
	return points, rows.Err()
}

// nullFloat converts an optional telemetry field for insertion.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// floatPtr converts a nullable column back to an optional telemetry field.
func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
