package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/kml"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

const (
	flightListLimit = 200
	refreshInterval = 30 * time.Second
)

// AppConfig holds the application configuration
type AppConfig struct {
	Config     *config.Config
	ConfigPath string
	Database   *db.DB
	Flights    *db.FlightRepository
	Points     *db.TelemetryRepository
	Observer   geodesy.Position
}

// App represents the main application
type App struct {
	// Configuration
	config     *config.Config
	configPath string
	observer   geodesy.Position

	// Data sources
	database *db.DB
	flights  *db.FlightRepository
	points   *db.TelemetryRepository

	// UI components
	tviewApp   *tview.Application
	flightList *tview.TextView
	profile    *ProfileView
	detail     *tview.TextView
	controls   *tview.TextView
	logs       *tview.TextView
	rootLayout *tview.Flex

	// State
	rows          []*db.Flight
	selectedIndex int
	track         *telemetry.Flight
	trackSerial   string

	// Synchronization
	mu          sync.RWMutex
	updateTimer *time.Ticker
	stopChan    chan struct{}
}

// NewApp creates a new application instance
func NewApp(cfg *AppConfig) *App {
	app := &App{
		config:     cfg.Config,
		configPath: cfg.ConfigPath,
		observer:   cfg.Observer,
		database:   cfg.Database,
		flights:    cfg.Flights,
		points:     cfg.Points,
		rows:       make([]*db.Flight, 0),
		stopChan:   make(chan struct{}),
	}

	app.setupUI()
	return app
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.createFlightListPanel()
	a.createProfilePanel()
	a.createDetailPanel()
	a.createControlsPanel()
	a.createLogsPanel()

	a.createLayout()

	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// createFlightListPanel creates the flight list panel
func (a *App) createFlightListPanel() {
	a.flightList = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.flightList.SetBorder(true).SetTitle(" Flights ")
}

// createProfilePanel creates the altitude profile plot
func (a *App) createProfilePanel() {
	a.profile = NewProfileView(a)
}

// createDetailPanel creates the flight detail panel
func (a *App) createDetailPanel() {
	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.detail.SetBorder(true).SetTitle(" Flight ")

	a.updateDetail()
}

// createControlsPanel creates the controls/shortcuts panel
func (a *App) createControlsPanel() {
	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.controls.SetBorder(true).SetTitle(" Controls ")

	controlsText := `[yellow]NAVIGATION[-]
  [white]↑/↓, j/k[-]  Select
  [white]PgUp/PgDn[-] Scroll

[yellow]ACTIONS[-]
  [white]ENTER[-]     Load track
  [white]e[-]         Export KML
  [white]r[-]         Refresh

[yellow]CONTROL[-]
  [white]q[-]         Quit`

	a.controls.SetText(controlsText)
}

// createLogsPanel creates the log viewer panel
func (a *App) createLogsPanel() {
	a.logs = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(100)
	a.logs.SetBorder(true).SetTitle(" Logs ")

	a.addLog("INFO", "Application started")
}

// createLayout creates the main layout: list, profile, sidebar
func (a *App) createLayout() {
	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.detail, 0, 4, false).
		AddItem(a.controls, 0, 3, false).
		AddItem(a.logs, 0, 3, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.flightList, 0, 3, true).
		AddItem(a.profile, 0, 5, false).
		AddItem(sidebar, 0, 3, false)

	a.tviewApp.SetRoot(a.rootLayout, true)
}

// addLog adds a log message to the log panel
func (a *App) addLog(level, message string) {
	timestamp := time.Now().Format("15:04:05")
	var color string
	switch level {
	case "ERROR":
		color = "red"
	case "WARN":
		color = "yellow"
	case "INFO":
		color = "white"
	case "DEBUG":
		color = "gray"
	default:
		color = "white"
	}

	logLine := fmt.Sprintf("[gray]%s[-] [%s]%-5s[-] %s\n", timestamp, color, level, message)
	fmt.Fprint(a.logs, logLine)
	a.logs.ScrollToEnd()
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	key := event.Key()
	r := event.Rune()

	switch {
	// Quit
	case key == tcell.KeyEscape || r == 'q':
		a.Stop()
		return nil

	// Navigation
	case key == tcell.KeyUp || r == 'k':
		a.moveSelection(-1)
		return nil
	case key == tcell.KeyDown || r == 'j':
		a.moveSelection(1)
		return nil
	case key == tcell.KeyPgUp:
		a.moveSelection(-10)
		return nil
	case key == tcell.KeyPgDn:
		a.moveSelection(10)
		return nil

	// Actions
	case key == tcell.KeyEnter:
		go a.loadTrack()
		return nil
	case r == 'e':
		go a.exportKML()
		return nil
	case r == 'r':
		go a.refreshFlights()
		return nil
	}

	return event
}

// moveSelection moves the flight selection by delta, clamped to the list.
func (a *App) moveSelection(delta int) {
	a.mu.Lock()

	if len(a.rows) == 0 {
		a.mu.Unlock()
		return
	}

	a.selectedIndex += delta
	if a.selectedIndex < 0 {
		a.selectedIndex = 0
	}
	if a.selectedIndex >= len(a.rows) {
		a.selectedIndex = len(a.rows) - 1
	}
	a.mu.Unlock()

	a.renderFlightList()
	a.updateDetail()
}

// selectedFlight returns the currently selected flight, or nil.
func (a *App) selectedFlight() *db.Flight {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.selectedIndex < 0 || a.selectedIndex >= len(a.rows) {
		return nil
	}
	return a.rows[a.selectedIndex]
}

// loadTrack loads the stored telemetry track for the selected flight.
func (a *App) loadTrack() {
	flight := a.selectedFlight()
	if flight == nil {
		a.addLog("WARN", "No flight selected")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	track, err := a.points.FlightTrack(ctx, flight.Serial)
	if err != nil {
		a.addLog("ERROR", fmt.Sprintf("Failed to load track: %v", err))
		return
	}
	if track == nil {
		a.addLog("WARN", fmt.Sprintf("No telemetry stored for %s", flight.Serial))
		return
	}

	a.mu.Lock()
	a.track = track
	a.trackSerial = flight.Serial
	a.mu.Unlock()

	a.addLog("INFO", fmt.Sprintf("Loaded %d points for %s", len(track.Points), flight.Serial))

	a.tviewApp.QueueUpdateDraw(func() {
		a.updateDetail()
	})
}

// exportKML writes the loaded track to <serial>.kml in the working directory.
func (a *App) exportKML() {
	a.mu.RLock()
	track := a.track
	serial := a.trackSerial
	a.mu.RUnlock()

	if track == nil {
		a.addLog("WARN", "Load a track first (ENTER)")
		return
	}

	path := serial + ".kml"
	out, err := os.Create(path)
	if err != nil {
		a.addLog("ERROR", fmt.Sprintf("Failed to create %s: %v", path, err))
		return
	}
	defer out.Close()

	doc := kml.NewDocument(kml.FlightFolder(track, kml.DefaultTrackOptions()))
	if err := kml.WriteDocument(out, doc); err != nil {
		a.addLog("ERROR", fmt.Sprintf("Failed to write KML: %v", err))
		return
	}

	a.addLog("INFO", fmt.Sprintf("Exported %s (%d points)", path, len(track.Points)))
}

// refreshFlights reloads the flight list from the archive.
func (a *App) refreshFlights() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := a.flights.ListFlights(ctx, flightListLimit, 0)
	if err != nil {
		a.addLog("ERROR", fmt.Sprintf("Failed to list flights: %v", err))
		return
	}

	a.mu.Lock()
	oldCount := len(a.rows)
	a.rows = rows
	if a.selectedIndex >= len(a.rows) {
		if len(a.rows) > 0 {
			a.selectedIndex = len(a.rows) - 1
		} else {
			a.selectedIndex = 0
		}
	}
	newCount := len(a.rows)
	a.mu.Unlock()

	if oldCount != newCount {
		a.addLog("INFO", fmt.Sprintf("Flight count: %d", newCount))
	}

	a.tviewApp.QueueUpdateDraw(func() {
		a.renderFlightList()
		a.updateDetail()
	})
}

// renderFlightList redraws the flight list panel.
func (a *App) renderFlightList() {
	a.mu.RLock()
	defer a.mu.RUnlock()

	a.flightList.Clear()

	if len(a.rows) == 0 {
		fmt.Fprint(a.flightList, "[gray]No flights archived yet[-]\n")
		return
	}

	for i, f := range a.rows {
		sondeType := f.SondeType
		if sondeType == "" {
			sondeType = "?"
		}

		burst := "      -"
		if f.Burst != nil {
			burst = fmt.Sprintf("%6.0fm", f.Burst.Alt)
		}

		marker := "  "
		tag := "[white]"
		if f.Serial == a.trackSerial {
			tag = "[green]"
		}
		if i == a.selectedIndex {
			marker = "→ "
			tag = "[black:aqua]"
		}

		fmt.Fprintf(a.flightList, "%s%s%-12s %-8s %s[-:-]\n", marker, tag, f.Serial, sondeType, burst)
	}

	// Keep the selection in view
	scrollTo := a.selectedIndex - 5
	if scrollTo < 0 {
		scrollTo = 0
	}
	a.flightList.ScrollTo(scrollTo, 0)
}

// updateDetail updates the flight detail panel content
func (a *App) updateDetail() {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var text string

	if a.selectedIndex >= 0 && a.selectedIndex < len(a.rows) {
		f := a.rows[a.selectedIndex]

		sondeType := f.SondeType
		if f.Subtype != "" && f.Subtype != f.SondeType {
			sondeType += " / " + f.Subtype
		}

		text += fmt.Sprintf("[yellow]FLIGHT:[-] [white]%s[-]\n", f.Serial)
		text += fmt.Sprintf("[gray]Type:[-]  [white]%s[-]\n", sondeType)
		text += fmt.Sprintf("[gray]Seen:[-]  [white]%s[-]\n", f.FirstSeen.Local().Format("Jan 02 15:04"))
		text += fmt.Sprintf("[gray]Update:[-][white]%s[-]\n", f.LastUpdated.Local().Format("Jan 02 15:04"))
		text += "\n"

		text += "[yellow]SUMMARY[-]\n"
		text += waypointLine("Launch", f.Launch)
		text += waypointLine("Burst", f.Burst)
		text += waypointLine("Landing", f.Landing)

		if f.Landing != nil {
			look := geodesy.ComputeLookAngle(a.observer, geodesy.Position{
				Latitude:  f.Landing.Lat,
				Longitude: f.Landing.Lon,
				Altitude:  f.Landing.Alt,
			})
			text += "\n[yellow]RECOVERY[-]\n"
			text += fmt.Sprintf("[gray]Range:[-] [white]%.1f km[-] [gray]brg[-] [white]%.0f°[-]\n",
				look.GreatCircleDistance/1000.0, look.Bearing)
		}
	} else {
		text += "[gray]No flight selected[-]\n"
	}

	text += "\n"

	if a.track != nil {
		duration := a.track.LastTime.Sub(a.track.Points[0].Datetime)
		text += fmt.Sprintf("[yellow]TRACK:[-] [white]%s[-]\n", a.trackSerial)
		text += fmt.Sprintf("[gray]Points:[-] [white]%d[-]  [gray]Max:[-] [white]%.0f m[-]\n",
			len(a.track.Points), a.track.MaxAltitude())
		text += fmt.Sprintf("[gray]Length:[-] [white]%s[-]\n", duration.Round(time.Minute))
	} else {
		text += "[gray]No track loaded[-]\n"
	}

	a.detail.SetText(text)
}

// waypointLine formats one summary waypoint for the detail panel.
func waypointLine(name string, wp *db.Waypoint) string {
	if wp == nil {
		return fmt.Sprintf("[gray]%-8s ---[-]\n", name+":")
	}
	return fmt.Sprintf("[gray]%-8s[-] [white]%7.4f°, %8.4f° @ %.0f m[-]\n",
		name+":", wp.Lat, wp.Lon, wp.Alt)
}

// Run starts the application
func (a *App) Run() error {
	a.updateTimer = time.NewTicker(refreshInterval)
	go a.updateLoop()

	return a.tviewApp.Run()
}

// updateLoop periodically refreshes the flight list
func (a *App) updateLoop() {
	// Initial load
	a.refreshFlights()

	for {
		select {
		case <-a.updateTimer.C:
			a.refreshFlights()
		case <-a.stopChan:
			return
		}
	}
}

// Stop stops the application
func (a *App) Stop() {
	a.addLog("INFO", "Shutting down...")

	if a.updateTimer != nil {
		a.updateTimer.Stop()
	}
	close(a.stopChan)

	a.tviewApp.Stop()
}
