package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/atmosphere"
	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/descent"
	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/sondehub"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// main is a test program to verify SondeHub integration.
// It fetches sondes near the configured observation site and calculates
// their look angles, air density and landing estimates.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	radius := flag.Float64("radius", 0, "Search radius in km (0 = use config)")
	lookback := flag.Duration("lookback", 30*time.Minute, "How far back to search for frames")
	flag.Parse()

	log.Println("SondeHub Data Source Test - api.v2.sondehub.org")
	log.Println("=====================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observer := cfg.Observer.Position()
	log.Printf("Observer Location: %.4f°, %.4f°, %.0fm MSL",
		observer.Latitude, observer.Longitude, observer.Altitude)

	client := sondehub.NewClient(sondehub.Config{
		BaseURL:           cfg.SondeHub.BaseURL,
		Timeout:           cfg.SondeHub.Timeout(),
		RequestsPerMinute: cfg.SondeHub.RequestsPerMinute,
	})

	searchRadius := cfg.SondeHub.SearchRadiusKm
	if *radius > 0 {
		searchRadius = *radius
	}
	log.Printf("Fetching sondes within %.0f km (last %s)...", searchRadius, *lookback)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SondeHub.Timeout()+10*time.Second)
	defer cancel()

	records, err := client.Latest(ctx, observer.Latitude, observer.Longitude, searchRadius, *lookback)
	if err != nil {
		log.Fatalf("Failed to fetch sondes: %v", err)
	}

	// Keep the newest frame per serial
	latest := make(map[string]telemetry.Record)
	for _, rec := range records {
		cur, ok := latest[rec.FlightSerial()]
		if !ok || rec.Datetime.After(cur.Datetime) {
			latest[rec.FlightSerial()] = rec
		}
	}

	log.Printf("Found %d frames from %d sondes", len(records), len(latest))
	log.Println("=====================================")

	serials := make([]string, 0, len(latest))
	for serial := range latest {
		serials = append(serials, serial)
	}
	sort.Strings(serials)

	sun := geodesy.CalculateSunPosition(geodesy.Observer{
		Location: observer,
		Timezone: cfg.Observer.TimeZone,
	}, time.Now())

	for i, serial := range serials {
		rec := latest[serial]
		look := geodesy.ComputeLookAngle(observer, rec.Position())

		log.Printf("\nSonde #%d:", i+1)
		log.Printf("  Serial:   %s", serial)
		if rec.Type != "" {
			sondeType := rec.Type
			if rec.Subtype != "" && rec.Subtype != rec.Type {
				sondeType += " (" + rec.Subtype + ")"
			}
			log.Printf("  Type:     %s", sondeType)
		}
		log.Printf("  Position: %.4f°, %.4f°", rec.Lat, rec.Lon)
		log.Printf("  Altitude: %.0f m MSL", rec.Alt)
		if rec.VelV != nil {
			log.Printf("  V/S:      %+.1f m/s", *rec.VelV)
		}
		if rec.VelH != nil {
			log.Printf("  Speed:    %.1f m/s", *rec.VelH)
		}
		if rec.Frequency != nil {
			log.Printf("  Freq:     %.3f MHz", *rec.Frequency)
		}
		log.Printf("  Last Frame: %s (%.0fs ago)",
			rec.Datetime.Format("15:04:05"),
			time.Since(rec.Datetime).Seconds())

		log.Printf("  → Look Angle:")
		log.Printf("       Elevation: %6.2f°", look.Elevation)
		log.Printf("       Azimuth:   %6.2f° (%s)", look.Bearing, azimuthToCardinal(look.Bearing))
		log.Printf("       Range:     %.1f km ground, %.1f km slant",
			look.GreatCircleDistance/1000.0, look.StraightLineDistance/1000.0)

		log.Printf("  → Atmosphere at altitude:")
		log.Printf("       Density:  %.4f kg/m³", atmosphere.Density(rec.Alt))
		log.Printf("       Temp:     %.1f K", atmosphere.Temperature(rec.Alt))

		if est, err := descent.EstimateFromRecord(rec, observer.Altitude); err == nil {
			log.Printf("  → Landing Estimate:")
			log.Printf("       Sea-level rate: %.1f m/s", est.SeaLevelRate)
			log.Printf("       Touchdown:      %s (in %s)",
				est.Touchdown.Local().Format("15:04:05"),
				est.TimeToGround.Round(time.Second))
		}

		if look.Elevation > 0 {
			sep := sun.AngularSeparation(look.Elevation, look.Bearing)
			if sun.AboveHorizon() && sep < 15.0 {
				log.Printf("     Status: VISIBLE, but only %.0f° from the sun", sep)
			} else {
				log.Printf("     Status: VISIBLE")
			}
		} else {
			log.Printf("     Status: Below horizon")
		}

		// Limit to first 10 sondes
		if i >= 9 {
			log.Printf("\n... and %d more sondes", len(serials)-10)
			break
		}
	}

	log.Println("\n=====================================")
	log.Println("Test complete!")
}

// azimuthToCardinal converts azimuth in degrees to a 16-wind compass direction.
func azimuthToCardinal(azimuth float64) string {
	directions := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	index := int((azimuth + 11.25) / 22.5)
	return directions[index%16]
}
