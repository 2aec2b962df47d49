package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/unklstewy/sonde-scope/pkg/kml"
)

func main() {
	folder := flag.String("folder", "telemetry", "Folder of flight telemetry logs (*.json)")
	output := flag.String("output", "flights.kml", "Output KML file")
	absolute := flag.Bool("absolute", true, "Render positions at true altitude instead of clamped to ground")
	extrude := flag.Bool("extrude", true, "Fill the curtain between each track and the ground")
	lastOnly := flag.Bool("last-only", false, "Render only the last heard position of each flight")
	verbose := flag.Bool("v", false, "Enable verbose output")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Sonde Scope - Telemetry KML Export")
	log.Println("===========================================")

	paths, err := filepath.Glob(filepath.Join(*folder, "*.json"))
	if err != nil {
		log.Fatalf("Failed to list telemetry logs in %s: %v", *folder, err)
	}
	if len(paths) == 0 {
		log.Fatalf("No telemetry logs found in %s", *folder)
	}
	log.Printf("Found %d telemetry logs in %s", len(paths), *folder)
	if *verbose {
		for _, p := range paths {
			log.Printf("  %s", p)
		}
	}

	opts := kml.DefaultTrackOptions()
	opts.Absolute = *absolute
	opts.Extrude = *extrude
	opts.LastOnly = *lastOnly

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}

	count, err := kml.FlightLogsToKML(paths, out, opts)
	if err != nil {
		out.Close()
		log.Fatalf("Failed to render KML: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}

	if skipped := len(paths) - count; skipped > 0 {
		log.Printf("⚠️  Skipped %d unreadable logs", skipped)
	}
	log.Printf("✓ Wrote %d flights to %s", count, *output)
}
