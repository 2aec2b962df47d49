package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
	"github.com/unklstewy/sonde-scope/pkg/visibility"
)

func main() {
	folder := flag.String("folder", "summary_data", "Folder of flight summary files (*.json)")
	output := flag.String("output", "serial_matches.txt", "Output file for matching serials, one per line")
	lat := flag.Float64("lat", 37.4300, "Observer latitude in decimal degrees")
	lon := flag.Float64("lon", -89.6436, "Observer longitude in decimal degrees")
	alt := flag.Float64("alt", 161.0, "Observer altitude in meters MSL")
	minEl := flag.Float64("min-el", -5.0, "Minimum elevation angle in degrees (matches must be strictly above)")
	datetime := flag.String("datetime", "2024-04-08T19:00:15Z", "Observation time in RFC3339")
	window := flag.Int("window", 14400, "Match window around the observation time in seconds")
	verbose := flag.Bool("v", false, "Enable verbose output")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Sonde Scope - Visibility Search")
	log.Println("===========================================")

	obsTime, err := time.Parse(time.RFC3339, *datetime)
	if err != nil {
		log.Fatalf("Failed to parse --datetime %q: %v", *datetime, err)
	}

	observer := geodesy.Position{Latitude: *lat, Longitude: *lon, Altitude: *alt}
	criteria := visibility.Criteria{
		Observer:     observer,
		Time:         obsTime,
		MinElevation: *minEl,
		Window:       time.Duration(*window) * time.Second,
	}

	log.Printf("Observer location: %.4f°, %.4f°, %.0fm MSL", *lat, *lon, *alt)
	log.Printf("Observation time: %s", obsTime.Format(time.RFC3339))
	log.Printf("Criteria: elevation above %.1f°, time offset under %s", *minEl, criteria.Window)

	files, err := telemetry.SummaryFiles(*folder)
	if err != nil {
		log.Fatalf("Failed to list summary files in %s: %v", *folder, err)
	}
	if len(files) == 0 {
		log.Fatalf("No summary files found in %s", *folder)
	}
	log.Printf("Found %d summary files in %s", len(files), *folder)

	var records []telemetry.Record
	skipped := 0
	for _, path := range files {
		summary, err := telemetry.LoadSummary(path)
		if err != nil {
			log.Printf("✗ Skipping %s: %v", path, err)
			skipped++
			continue
		}
		if *verbose {
			log.Printf("Loaded %s (%d entries)", path, len(summary))
		}
		records = append(records, summary...)
	}
	log.Printf("Loaded %d records from %d files (%d skipped)", len(records), len(files)-skipped, skipped)

	matches := visibility.FindVisible(criteria, records)
	serials := matches.Serials()

	if len(serials) == 0 {
		log.Println("No flights were visible in the window")
	} else {
		log.Printf("✓ %d flights were visible:", len(serials))
		sun := geodesy.CalculateSunPosition(geodesy.Observer{Location: observer}, obsTime)
		for _, serial := range serials {
			rec := matches[serial]
			look := geodesy.ComputeLookAngle(observer, rec.Position())
			log.Printf("  🎯 %-12s el %6.2f°  az %6.2f°  %7.1f km  alt %6.0fm",
				serial, look.Elevation, look.Bearing, look.GreatCircleDistance/1000.0, rec.Alt)
			if *verbose {
				offset := rec.Datetime.Sub(obsTime)
				log.Printf("     heard %s (offset %s), sun elevation %.1f°",
					rec.Datetime.Format(time.RFC3339), formatOffset(offset), sun.Elevation)
			}
		}
	}

	if err := writeSerials(*output, serials); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Wrote %d serials to %s", len(serials), *output)
}

// writeSerials writes one serial per line. The list is already sorted, so
// repeated runs over the same archive produce identical files.
func writeSerials(path string, serials []string) error {
	var sb strings.Builder
	for _, serial := range serials {
		sb.WriteString(serial)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// formatOffset renders a signed duration as e.g. "-1h12m" or "+38m".
func formatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%s%dh%02dm", sign, h, m)
	}
	return fmt.Sprintf("%s%dm", sign, m)
}
