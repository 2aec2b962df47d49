package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// Bulk importer for batch-fetched telemetry. Loads summary files and raw
// flight logs from disk into postgres so the web server and the terminal
// clients can serve them without touching SondeHub.

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	folder := flag.String("folder", "telemetry", "Folder of per-flight telemetry logs")
	summaries := flag.String("summaries", "summary_data", "Folder of flight summary files")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Sonde Scope - Telemetry Importer")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Connecting to database...")
	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("✓ Database connected")

	ctx := context.Background()
	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("✓ Schema initialized")

	importer := &TelemetryImporter{
		flights:   db.NewFlightRepository(database),
		points:    db.NewTelemetryRepository(database),
		folder:    *folder,
		summaries: *summaries,
	}

	log.Println("\n===========================================")
	log.Println("Importing Summaries")
	log.Println("===========================================")

	summaryCount, err := importer.ImportSummaries(ctx)
	if err != nil {
		log.Printf("Warning: Failed to import summaries: %v", err)
	} else {
		log.Printf("✓ Imported %d flight summaries", summaryCount)
	}

	log.Println("\n===========================================")
	log.Println("Importing Flight Logs")
	log.Println("===========================================")

	logCount, pointCount, err := importer.ImportFlightLogs(ctx)
	if err != nil {
		log.Printf("Warning: Failed to import flight logs: %v", err)
	} else {
		log.Printf("✓ Imported %d flight logs (%d points)", logCount, pointCount)
	}

	log.Println("\n===========================================")
	log.Println("Import Complete")
	log.Println("===========================================")
	log.Printf("Flight summaries: %d", summaryCount)
	log.Printf("Flight logs: %d", logCount)
	log.Printf("Telemetry points: %d", pointCount)
}

// TelemetryImporter bulk-loads on-disk telemetry into the archive.
type TelemetryImporter struct {
	flights   *db.FlightRepository
	points    *db.TelemetryRepository
	folder    string
	summaries string
}

// ImportSummaries upserts every summary file into the flights table.
// Unreadable files are logged and skipped.
func (i *TelemetryImporter) ImportSummaries(ctx context.Context) (int, error) {
	paths, err := telemetry.SummaryFiles(i.summaries)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range paths {
		summary, err := telemetry.LoadSummary(path)
		if err != nil {
			log.Printf("Warning: Skipping %s: %v", path, err)
			continue
		}

		if err := i.flights.UpsertSummary(ctx, summary); err != nil {
			log.Printf("Warning: Failed to store %s: %v", path, err)
			continue
		}

		count++
		if count%100 == 0 {
			log.Printf("  Imported %d summaries...", count)
		}
	}
	return count, nil
}

// ImportFlightLogs inserts every flight log's frames into the points table
// and upserts a flight row from the last frame, so flights without a summary
// still show up in listings. Frames already imported hit the (serial, time)
// conflict clause and are not counted again.
func (i *TelemetryImporter) ImportFlightLogs(ctx context.Context) (int, int, error) {
	paths, err := logPaths(i.folder)
	if err != nil {
		return 0, 0, err
	}

	files := 0
	points := 0
	for _, path := range paths {
		flight, err := telemetry.LoadFlightLog(path)
		if err != nil {
			log.Printf("Warning: Skipping %s: %v", path, err)
			continue
		}

		inserted, err := i.points.InsertPoints(ctx, flight.Points)
		if err != nil {
			log.Printf("Warning: Failed to store points from %s: %v", path, err)
			continue
		}
		if err := i.flights.UpsertLive(ctx, flight.LastPoint()); err != nil {
			log.Printf("Warning: Failed to upsert flight %s: %v", flight.Serial, err)
		}

		files++
		points += inserted
		if files%10 == 0 {
			log.Printf("  Imported %d logs (%d points)...", files, points)
		}
	}
	return files, points, nil
}

// logPaths lists flight logs in both layouts the tools produce: the flat
// fetcher output (folder/*.json) and the date-sharded archive store
// (folder/<year>/<month>/<serial>.json).
func logPaths(folder string) ([]string, error) {
	flat, err := filepath.Glob(filepath.Join(folder, "*.json"))
	if err != nil {
		return nil, err
	}
	sharded, err := telemetry.FlightLogFiles(folder)
	if err != nil {
		return nil, err
	}
	return append(flat, sharded...), nil
}
