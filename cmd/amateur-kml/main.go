package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/kml"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

func main() {
	input := flag.String("input", "amateur.json", "Amateur archive dump (JSON object keyed by callsign)")
	output := flag.String("output", "amateur.kml", "Output KML file")
	absolute := flag.Bool("absolute", true, "Render positions at true altitude instead of clamped to ground")
	extrude := flag.Bool("extrude", true, "Fill the curtain between each track and the ground")
	lastOnly := flag.Bool("last-only", false, "Render only the last heard position of each flight")
	verbose := flag.Bool("v", false, "Enable verbose output")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Sonde Scope - Amateur Archive KML Export")
	log.Println("===========================================")

	flights, err := telemetry.LoadAmateurArchive(*input)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *input, err)
	}
	if len(flights) == 0 {
		log.Fatalf("No usable flights in %s", *input)
	}
	log.Printf("Loaded %d flights from %s", len(flights), *input)
	if *verbose {
		for _, f := range flights {
			log.Printf("  %s: %d points, last heard %s",
				f.Serial, len(f.Points), f.LastTime.Format(time.RFC3339))
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

	if err := kml.WriteDocument(out, kml.FlightsDocument(flights, opts)); err != nil {
		out.Close()
		log.Fatalf("Failed to render KML: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}

	log.Printf("✓ Wrote %d flights to %s", len(flights), *output)
}
