package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/sondehub"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// fetch-telemetry downloads the raw frame history for every serial the
// visibility search matched, one JSON log per flight. Logs that already
// exist are skipped so an interrupted run can resume where it stopped.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	serialsPath := flag.String("serials", "serial_matches.txt", "File of flight serials, one per line")
	outputDir := flag.String("output", "telemetry", "Output folder for per-flight telemetry logs")
	duration := flag.String("duration", "1d", "History window to request (3h, 1d or 3d)")
	force := flag.Bool("force", false, "Refetch flights that already have a local log")
	configPath := flag.String("config", "configs/config.json", "Configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	serials, err := readSerials(*serialsPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *serialsPath, err)
	}
	if len(serials) == 0 {
		log.Fatalf("No serials listed in %s", *serialsPath)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outputDir, err)
	}

	client := sondehub.NewClient(sondehub.Config{
		BaseURL:           cfg.SondeHub.BaseURL,
		Timeout:           cfg.SondeHub.Timeout(),
		RequestsPerMinute: cfg.SondeHub.RequestsPerMinute,
	})

	log.Println("===========================================")
	log.Println("  Sonde Scope - Telemetry Fetcher")
	log.Println("===========================================")
	log.Printf("Serials: %d from %s", len(serials), *serialsPath)
	log.Printf("History window: %s", *duration)
	log.Printf("API rate limit: %d requests/minute", cfg.SondeHub.RequestsPerMinute)
	log.Println("===========================================")

	ctx := context.Background()
	retryCfg := sondehub.DefaultRetryConfig()

	fetched := 0
	cached := 0
	empty := 0
	errors := 0

	for _, serial := range serials {
		outPath := filepath.Join(*outputDir, serial+".json")

		if !*force {
			if _, err := os.Stat(outPath); err == nil {
				log.Printf("  ✓ %s - already fetched", serial)
				cached++
				continue
			}
		}

		log.Printf("  → Fetching %s...", serial)
		records, err := sondehub.RetryWithBackoffResult(ctx, retryCfg, func() ([]telemetry.Record, error) {
			return client.FlightTelemetry(ctx, serial, *duration)
		})
		if err != nil {
			log.Printf("    ✗ Error: %v", err)
			errors++
			continue
		}
		if len(records) == 0 {
			log.Printf("    - No frames returned")
			empty++
			continue
		}

		if err := writeLog(outPath, records); err != nil {
			log.Printf("    ✗ Failed to store: %v", err)
			errors++
			continue
		}
		log.Printf("    ✓ Stored %d frames", len(records))
		fetched++
	}

	log.Println("===========================================")
	log.Printf("Fetch summary:")
	log.Printf("  Fetched: %d", fetched)
	log.Printf("  Cached:  %d", cached)
	log.Printf("  Empty:   %d", empty)
	log.Printf("  Errors:  %d", errors)
	log.Println("===========================================")

	if errors > 0 {
		os.Exit(1)
	}
}

// readSerials reads one serial per line, ignoring blanks and # comments.
func readSerials(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var serials []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		serials = append(serials, line)
	}
	return serials, scanner.Err()
}

// writeLog stores raw frames as an indented JSON array so the logs stay
// diffable and hand-inspectable.
func writeLog(path string, records []telemetry.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
