package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flight-browser version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	app := NewApp(&AppConfig{
		Config:     cfg,
		ConfigPath: *configPath,
		Database:   database,
		Flights:    db.NewFlightRepository(database),
		Points:     db.NewTelemetryRepository(database),
		Observer:   cfg.Observer.Position(),
	})

	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// printHelp prints usage information
func printHelp() {
	fmt.Println("flight-browser - Terminal UI for browsing the radiosonde archive")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  flight-browser [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file (default: configs/config.json)")
	fmt.Println("  -version")
	fmt.Println("        Show version information")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("KEYBOARD SHORTCUTS:")
	fmt.Println("  Navigation:")
	fmt.Println("    ↑/↓ or j/k     Select flight")
	fmt.Println("    PgUp/PgDn      Fast scroll")
	fmt.Println()
	fmt.Println("  Actions:")
	fmt.Println("    ENTER          Load the flight's track")
	fmt.Println("    e              Export the track as KML")
	fmt.Println("    r              Refresh the flight list")
	fmt.Println()
	fmt.Println("  Control:")
	fmt.Println("    q or ESC       Quit application")
	fmt.Println()
	fmt.Println("FEATURES:")
	fmt.Println("  - Flight list with launch/burst/landing summaries")
	fmt.Println("  - Altitude profile plot of the stored track")
	fmt.Println("  - Look angles from the configured observation site")
	fmt.Println("  - One-key KML export for Google Earth")
	fmt.Println()
	fmt.Println("For more information, visit:")
	fmt.Println("  https://github.com/unklstewy/sonde-scope")
}
