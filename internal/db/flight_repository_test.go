package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// TestNewFlightRepository tests repository construction.
func TestNewFlightRepository(t *testing.T) {
	repo := NewFlightRepository(nil)
	if repo == nil {
		t.Fatal("Expected non-nil repository")
	}
}

// TestUpsertSummaryValidation tests the summary shape checks that run before
// any database access.
func TestUpsertSummaryValidation(t *testing.T) {
	repo := NewFlightRepository(nil)
	ctx := context.Background()

	t.Run("Wrong record count", func(t *testing.T) {
		summary := []telemetry.Record{
			{Serial: "V1854526"},
			{Serial: "V1854526"},
		}
		err := repo.UpsertSummary(ctx, summary)
		if err == nil {
			t.Fatal("Expected error for two-record summary")
		}
	})

	t.Run("Empty summary", func(t *testing.T) {
		err := repo.UpsertSummary(ctx, nil)
		if err == nil {
			t.Fatal("Expected error for empty summary")
		}
	})

	t.Run("No serial", func(t *testing.T) {
		summary := make([]telemetry.Record, telemetry.SummaryEntryCount)
		err := repo.UpsertSummary(ctx, summary)
		if err == nil {
			t.Fatal("Expected error for summary without serial")
		}
	})
}

// TestWaypointFolding tests collapsing nullable summary columns.
func TestWaypointFolding(t *testing.T) {
	now := time.Now().UTC()

	valid := func(v float64) sql.NullFloat64 {
		return sql.NullFloat64{Float64: v, Valid: true}
	}
	validTime := sql.NullTime{Time: now, Valid: true}

	tests := []struct {
		name    string
		lat     sql.NullFloat64
		lon     sql.NullFloat64
		alt     sql.NullFloat64
		t       sql.NullTime
		wantNil bool
		wantAlt float64
	}{
		{
			name: "All columns present",
			lat:  valid(37.43), lon: valid(-89.64), alt: valid(161.0), t: validTime,
			wantNil: false,
			wantAlt: 161.0,
		},
		{
			name: "Missing latitude",
			lon:  valid(-89.64), alt: valid(161.0), t: validTime,
			wantNil: true,
		},
		{
			name: "Missing timestamp",
			lat:  valid(37.43), lon: valid(-89.64), alt: valid(161.0),
			wantNil: true,
		},
		{
			name: "Missing altitude reads as zero",
			lat:  valid(37.43), lon: valid(-89.64), t: validTime,
			wantNil: false,
			wantAlt: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wp := waypoint(tt.lat, tt.lon, tt.alt, tt.t)
			if tt.wantNil {
				if wp != nil {
					t.Errorf("Expected nil waypoint, got %+v", wp)
				}
				return
			}
			if wp == nil {
				t.Fatal("Expected non-nil waypoint")
			}
			if wp.Lat != tt.lat.Float64 {
				t.Errorf("Expected lat %f, got %f", tt.lat.Float64, wp.Lat)
			}
			if wp.Alt != tt.wantAlt {
				t.Errorf("Expected alt %f, got %f", tt.wantAlt, wp.Alt)
			}
			if !wp.Time.Equal(now) {
				t.Errorf("Expected time %v, got %v", now, wp.Time)
			}
		})
	}
}

// TestSummaryRecords tests converting an archived flight back to the records
// the visibility filter consumes.
func TestSummaryRecords(t *testing.T) {
	launch := time.Date(2024, 4, 8, 12, 0, 0, 0, time.UTC)
	burst := launch.Add(90 * time.Minute)
	landing := launch.Add(3 * time.Hour)

	t.Run("Full summary", func(t *testing.T) {
		f := &Flight{
			Serial:    "V1854526",
			SondeType: "RS41",
			Launch:    &Waypoint{Lat: 37.0, Lon: -89.0, Alt: 100.0, Time: launch},
			Burst:     &Waypoint{Lat: 37.2, Lon: -89.2, Alt: 28000.0, Time: burst},
			Landing:   &Waypoint{Lat: 37.4, Lon: -89.4, Alt: 150.0, Time: landing},
		}

		records := f.SummaryRecords()
		if len(records) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(records))
		}
		if records[0].Serial != "V1854526" {
			t.Errorf("Expected serial V1854526, got %s", records[0].Serial)
		}
		if records[0].Type != "RS41" {
			t.Errorf("Expected type RS41, got %s", records[0].Type)
		}
		if records[1].Alt != 28000.0 {
			t.Errorf("Expected burst alt 28000, got %f", records[1].Alt)
		}
		if !records[2].Datetime.Equal(landing) {
			t.Errorf("Expected landing time %v, got %v", landing, records[2].Datetime)
		}
	})

	t.Run("Partial summary", func(t *testing.T) {
		f := &Flight{
			Serial: "V1854526",
			Launch: &Waypoint{Lat: 37.0, Lon: -89.0, Alt: 100.0, Time: launch},
		}

		records := f.SummaryRecords()
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
	})

	t.Run("Live-only flight", func(t *testing.T) {
		f := &Flight{Serial: "V1854526"}
		records := f.SummaryRecords()
		if len(records) != 0 {
			t.Errorf("Expected no records, got %d", len(records))
		}
	})
}
