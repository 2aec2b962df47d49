package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/sondehub"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// Archiver continuously polls SondeHub for sondes around the observer and
// stores every frame in the database. It runs as a background service so the
// web server and the terminal clients can share one archive without each
// hitting the API.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Sonde Scope - Archiver Service")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Observer: %s at %.4f°, %.4f°, %.0fm MSL",
		cfg.Observer.Name, cfg.Observer.Latitude, cfg.Observer.Longitude, cfg.Observer.Elevation)
	log.Printf("Search radius: %.0f km", cfg.SondeHub.SearchRadiusKm)
	log.Printf("Update interval: %d seconds", cfg.Archive.UpdateIntervalSeconds)
	log.Printf("Retention: %d days", cfg.Archive.RetentionDays)

	// The archiver often starts before postgres does, so keep trying
	// instead of dying on the first refused connection.
	log.Println("\nConnecting to database...")
	database, err := db.ReconnectWithRetry(cfg.Database, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("✓ Database schema initialized")

	client := sondehub.NewClient(sondehub.Config{
		BaseURL:           cfg.SondeHub.BaseURL,
		Timeout:           cfg.SondeHub.Timeout(),
		RequestsPerMinute: cfg.SondeHub.RequestsPerMinute,
	})
	log.Printf("\n✓ Using SondeHub API: %s", cfg.SondeHub.BaseURL)
	log.Printf("  Rate limit: %d requests/minute", cfg.SondeHub.RequestsPerMinute)

	archiver := &Archiver{
		db:             database,
		dbConfig:       cfg.Database,
		flights:        db.NewFlightRepository(database),
		points:         db.NewTelemetryRepository(database),
		client:         client,
		observer:       cfg.Observer.Position(),
		radiusKm:       cfg.SondeHub.SearchRadiusKm,
		updateInterval: cfg.Archive.UpdateInterval(),
		retention:      cfg.Archive.Retention(),
		seen:           make(map[string]bool),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for restarts := 0; ; restarts++ {
			if runLoop(ctx, archiver) {
				return
			}
			if restarts >= 1 {
				log.Println("Archive loop cannot recover, shutting down")
				return
			}
			log.Println("Archive loop will restart in 5 seconds...")
			time.Sleep(5 * time.Second)
		}
	}()

	log.Println("\n===========================================")
	log.Println("  Archiver service started")
	log.Println("  Press Ctrl+C to stop")
	log.Println("===========================================")

	select {
	case sig := <-sigChan:
		log.Printf("\nReceived signal: %v", sig)
		cancel()
		<-done
	case <-done:
		log.Println("\nArchive loop stopped")
	}

	log.Println("Shutting down gracefully...")
	log.Println("✓ Archiver service stopped")
}

// runLoop runs the archive loop, reporting true on clean exit and false if
// the loop panicked.
func runLoop(ctx context.Context, a *Archiver) (clean bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in archive loop: %v", r)
			clean = false
		}
	}()
	a.Run(ctx)
	return true
}

// Archiver manages the sonde data collection process.
type Archiver struct {
	db             *db.DB
	dbConfig       config.DatabaseConfig
	flights        *db.FlightRepository
	points         *db.TelemetryRepository
	client         *sondehub.Client
	observer       geodesy.Position
	radiusKm       float64
	updateInterval time.Duration
	retention      time.Duration

	// Statistics
	seen         map[string]bool
	totalUpdates int
	totalFrames  int
	lastUpdate   time.Time
}

// Run starts the poll loop and blocks until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.updateInterval)
	defer ticker.Stop()

	// Do first update immediately
	log.Println("Performing initial data fetch...")
	a.update(ctx)
	log.Println("✓ Initial dataset populated")

	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.update(ctx)
		case <-cleanupTicker.C:
			a.cleanup(ctx)
		case <-statsTicker.C:
			a.printStats(ctx)
		}
	}
}

// update fetches the sondes currently in range and stores their frames.
func (a *Archiver) update(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in update(): %v", r)
			log.Println("Update will be retried on next cycle")
		}
	}()

	now := time.Now().UTC()
	a.totalUpdates++

	// A dropped connection reconnects here instead of failing every
	// cycle until someone restarts the service.
	fresh, err := db.EnsureConnection(a.db, a.dbConfig)
	if err != nil {
		log.Printf("✗ Database unavailable: %v", err)
		return
	}
	if fresh != a.db {
		a.db = fresh
		a.flights = db.NewFlightRepository(fresh)
		a.points = db.NewTelemetryRepository(fresh)
	}

	records, err := a.fetchLatest(ctx)
	if err != nil {
		log.Printf("✗ Failed to fetch sondes after retries: %v (will retry in next update cycle)", err)
		return
	}
	if len(records) == 0 {
		log.Println("  ℹ No sondes in range")
		return
	}

	// Latest frame per serial drives the flight upsert
	latest := make(map[string]telemetry.Record)
	for _, rec := range records {
		serial := rec.FlightSerial()
		if serial == "" {
			continue
		}
		if prev, ok := latest[serial]; !ok || rec.Datetime.After(prev.Datetime) {
			latest[serial] = rec
		}
	}

	upserted := 0
	for serial, rec := range latest {
		if !a.seen[serial] {
			a.seen[serial] = true
			log.Printf("  🎯 New sonde %s (%s) at %.0fm", serial, rec.Type, rec.Alt)
		}
		if err := a.flights.UpsertLive(ctx, rec); err != nil {
			log.Printf("Error storing flight %s: %v", serial, err)
			continue
		}
		upserted++
	}

	inserted, err := a.points.InsertPoints(ctx, records)
	if err != nil {
		log.Printf("Error storing telemetry points: %v", err)
	}

	a.lastUpdate = now
	a.totalFrames += inserted

	log.Printf("[%s] Update #%d: %d frames, %d sondes, %d new points",
		now.Format("15:04:05"), a.totalUpdates, len(records), upserted, inserted)
}

// fetchLatest pulls recent frames around the observer with exponential
// backoff retry.
func (a *Archiver) fetchLatest(ctx context.Context) ([]telemetry.Record, error) {
	retryConfig := sondehub.RetryConfig{
		MaxRetries:        4,
		InitialDelay:      2 * time.Second,
		MaxDelay:          32 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
	}

	// Overlap the poll interval so a failed cycle leaves no gap; duplicate
	// frames fall out on the (serial, time) conflict clause.
	lookback := 2 * a.updateInterval
	if lookback < 5*time.Minute {
		lookback = 5 * time.Minute
	}

	return sondehub.RetryWithBackoffResult(ctx, retryConfig, func() ([]telemetry.Record, error) {
		return a.client.Latest(ctx, a.observer.Latitude, a.observer.Longitude, a.radiusKm, lookback)
	})
}

// cleanup ages out telemetry past the retention window.
func (a *Archiver) cleanup(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in cleanup(): %v", r)
		}
	}()

	// Cleanup only runs once a day, so a transient failure is worth a
	// few retries rather than waiting for tomorrow.
	err := db.WithRetry(func() error {
		return a.db.CleanupOldData(ctx, a.retention)
	}, 3)
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
		return
	}
	log.Println("✓ Cleanup completed")
}

// printStats displays current statistics.
func (a *Archiver) printStats(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in printStats(): %v", r)
		}
	}()

	stats, err := a.db.GetStats(ctx)
	if err != nil {
		log.Printf("Error getting stats: %v", err)
		return
	}

	log.Printf("📊 Stats: %d flights (%d with summary), %d active sondes | %d points stored | %d total updates",
		stats["flights"],
		stats["flights_with_summary"],
		stats["active_sondes"],
		stats["telemetry_points"],
		a.totalUpdates,
	)
}
