package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
)

func main() {
	cfg, err := config.Load("configs/config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()

	fmt.Println("===========================================")
	fmt.Println("  Archive Verification")
	fmt.Println("===========================================")

	// If a serial argument is provided, deep-check that flight
	if len(os.Args) > 1 {
		checkFlight(ctx, database, os.Args[1])
		return
	}

	// Count flights by sonde type
	rows, err := database.QueryContext(ctx,
		`SELECT COALESCE(NULLIF(sonde_type, ''), 'unknown'), COUNT(*)
		 FROM flights GROUP BY 1 ORDER BY COUNT(*) DESC`)
	if err != nil {
		log.Fatalf("Failed to query flights: %v", err)
	}
	defer rows.Close()

	fmt.Println("Sonde Type    | Count")
	fmt.Println("--------------|-------")
	totalFlights := 0
	for rows.Next() {
		var sondeType string
		var count int
		rows.Scan(&sondeType, &count)
		fmt.Printf("%-13s | %d\n", sondeType, count)
		totalFlights += count
	}
	fmt.Printf("%-13s | %d\n", "TOTAL", totalFlights)

	if totalFlights == 0 {
		fmt.Println("\nNo flights in the archive yet.")
		fmt.Println("Run 'go run cmd/import-telemetry/main.go' or start the archiver.")
		return
	}

	// Summary and point totals
	var withSummary int
	err = database.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM flights WHERE launch_time IS NOT NULL").Scan(&withSummary)
	if err != nil {
		log.Fatalf("Failed to query summaries: %v", err)
	}
	fmt.Printf("\nFlights with full summary: %d/%d (%.1f%%)\n",
		withSummary, totalFlights, float64(withSummary)/float64(totalFlights)*100)

	var totalPoints int64
	err = database.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM telemetry_points").Scan(&totalPoints)
	if err != nil {
		log.Fatalf("Failed to query points: %v", err)
	}
	fmt.Printf("Telemetry points stored: %d\n", totalPoints)

	// Show recent flights with their point counts
	fmt.Println("\nRecent Flights:")
	rows2, err := database.QueryContext(ctx,
		`SELECT f.serial, COALESCE(NULLIF(f.sonde_type, ''), '?'),
		        COALESCE(f.burst_alt, 0), f.last_updated,
		        COUNT(tp.id) AS point_count
		 FROM flights f
		 LEFT JOIN telemetry_points tp ON tp.serial = f.serial
		 GROUP BY f.serial, f.sonde_type, f.burst_alt, f.last_updated
		 ORDER BY f.last_updated DESC
		 LIMIT 10`)
	if err != nil {
		log.Fatalf("Failed to query recent flights: %v", err)
	}
	defer rows2.Close()

	for rows2.Next() {
		var serial, sondeType string
		var burstAlt float64
		var lastUpdated time.Time
		var pointCount int

		rows2.Scan(&serial, &sondeType, &burstAlt, &lastUpdated, &pointCount)
		if burstAlt > 0 {
			fmt.Printf("  %s: %s, burst %.0f m, %d points, updated %s\n",
				serial, sondeType, burstAlt, pointCount, lastUpdated.Local().Format("Jan 02 15:04"))
		} else {
			fmt.Printf("  %s: %s, no summary, %d points, updated %s\n",
				serial, sondeType, pointCount, lastUpdated.Local().Format("Jan 02 15:04"))
		}
	}

	// Cross-check the telemetry folder against the archive
	fmt.Println("\nTelemetry Folder:")
	logFiles, err := filepath.Glob(filepath.Join(cfg.Paths.TelemetryDir, "*.json"))
	if err != nil || len(logFiles) == 0 {
		fmt.Printf("  - No flight logs found in %s\n", cfg.Paths.TelemetryDir)
	} else {
		onDisk := 0
		for _, path := range logFiles {
			serial := filepath.Base(path)
			serial = serial[:len(serial)-len(".json")]

			var archived bool
			database.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM telemetry_points WHERE serial = $1)",
				serial).Scan(&archived)
			if archived {
				onDisk++
			}
		}
		fmt.Printf("  %d logs on disk, %d of them imported\n", len(logFiles), onDisk)
		if onDisk < len(logFiles) {
			fmt.Printf("  ✗ %d logs not imported yet\n", len(logFiles)-onDisk)
		} else {
			fmt.Println("  ✓ All logs imported")
		}
	}

	fmt.Println("\n===========================================")
	fmt.Println("✓ Verification Complete")
	fmt.Println("===========================================")
	fmt.Println("\nUsage:")
	fmt.Println("  go run cmd/verify-archive/main.go            - Show archive stats")
	fmt.Println("  go run cmd/verify-archive/main.go V1854526   - Deep-check one flight")
}

// checkFlight deep-checks a single archived flight.
func checkFlight(ctx context.Context, database *db.DB, serial string) {
	fmt.Printf("Checking flight: %s\n\n", serial)

	flights := db.NewFlightRepository(database)
	points := db.NewTelemetryRepository(database)

	f, err := flights.GetFlight(ctx, serial)
	if err != nil {
		log.Fatalf("Failed to get flight: %v", err)
	}
	if f == nil {
		fmt.Printf("✗ %s is not archived\n", serial)
		return
	}

	fmt.Println("✓ Flight Archived:")
	fmt.Printf("  Serial: %s\n", f.Serial)
	if f.SondeType != "" {
		fmt.Printf("  Type:   %s\n", f.SondeType)
	}
	fmt.Printf("  First Seen:   %s\n", f.FirstSeen.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Last Updated: %s\n", f.LastUpdated.Local().Format("2006-01-02 15:04:05"))

	fmt.Println("\nSummary Positions:")
	checkWaypoint("Launch", f.Launch)
	checkWaypoint("Burst", f.Burst)
	checkWaypoint("Landing", f.Landing)

	count, err := points.CountPoints(ctx, serial)
	if err != nil {
		log.Fatalf("Failed to count points: %v", err)
	}

	if count == 0 {
		fmt.Println("\n✗ No telemetry points stored")
		return
	}
	fmt.Printf("\n✓ Telemetry: %d points\n", count)

	track, err := points.FlightTrack(ctx, serial)
	if err != nil {
		log.Fatalf("Failed to load track: %v", err)
	}
	if track != nil && len(track.Points) > 0 {
		first := track.Points[0]
		last := track.LastPoint()
		fmt.Printf("  First Frame: %s at %.0f m\n",
			first.Datetime.Local().Format("15:04:05"), first.Alt)
		fmt.Printf("  Last Frame:  %s at %.0f m\n",
			last.Datetime.Local().Format("15:04:05"), last.Alt)
		fmt.Printf("  Max Altitude: %.0f m\n", track.MaxAltitude())
		fmt.Printf("  Duration: %s\n", last.Datetime.Sub(first.Datetime).Round(time.Second))

		// Burst altitude in the summary should match the stored track
		if f.Burst != nil {
			diff := f.Burst.Alt - track.MaxAltitude()
			if diff < 100 && diff > -100 {
				fmt.Printf("  ✓ Track max matches summary burst (%.0f m)\n", f.Burst.Alt)
			} else {
				fmt.Printf("  ✗ Track max %.0f m differs from summary burst %.0f m\n",
					track.MaxAltitude(), f.Burst.Alt)
			}
		}
	}
}

// checkWaypoint prints one summary waypoint with a ✓/✗ marker.
func checkWaypoint(name string, wp *db.Waypoint) {
	if wp == nil {
		fmt.Printf("  ✗ %-8s not stored\n", name)
		return
	}
	fmt.Printf("  ✓ %-8s %.4f°, %.4f° at %.0f m (%s)\n",
		name, wp.Lat, wp.Lon, wp.Alt, wp.Time.Local().Format("15:04:05"))
}
