// Sonde Scope TUI
// A polar plan view of the sondes currently in the archive, centered on the
// observation site. Reads the latest positions on a timer and overlays look
// angles, drift vectors and landing estimates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/descent"
	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

const (
	updateInterval = 5 * time.Second
	positionMaxAge = 10 * time.Minute

	minRadiusKm = 10.0
	maxRadiusKm = 2000.0

	listRows = 5
)

// tickMsg drives the periodic refresh.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(updateInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sondeEntry is one sonde with everything the display needs precomputed.
type sondeEntry struct {
	rec     telemetry.Record
	look    geodesy.LookAngle
	landing *descent.Estimate // nil while ascending
}

type model struct {
	cfg    *config.Config
	points *db.TelemetryRepository

	observer     geodesy.Position
	observerName string

	sondes   []sondeEntry
	selected int

	tracking    bool
	trackSerial string

	radiusKm float64

	inputMode  bool
	inputValue string

	width  int
	height int

	lastUpdate time.Time
	err        string
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.inputMode {
			switch msg.String() {
			case "enter":
				m.inputMode = false
				m.trackBySerial(m.inputValue)
				m.inputValue = ""
			case "esc":
				m.inputMode = false
				m.inputValue = ""
			case "backspace":
				if len(m.inputValue) > 0 {
					m.inputValue = m.inputValue[:len(m.inputValue)-1]
				}
			default:
				if len(msg.String()) == 1 {
					m.inputValue += strings.ToUpper(msg.String())
				}
			}
			return m, nil
		}

		// Any keypress clears a stale error message
		m.err = ""

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.sondes)-1 {
				m.selected++
			}

		case "enter", " ":
			if m.selected < len(m.sondes) {
				m.tracking = true
				m.trackSerial = m.sondes[m.selected].rec.FlightSerial()
			}

		case "s":
			m.tracking = false
			m.trackSerial = ""

		case "+", "=":
			m.radiusKm /= 1.5
			if m.radiusKm < minRadiusKm {
				m.radiusKm = minRadiusKm
			}

		case "-", "_":
			m.radiusKm *= 1.5
			if m.radiusKm > maxRadiusKm {
				m.radiusKm = maxRadiusKm
			}

		case "0":
			m.radiusKm = m.cfg.SondeHub.SearchRadiusKm

		case "/":
			m.inputMode = true
			m.inputValue = ""
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.updateSondes()
		return m, tick()
	}

	return m, nil
}

// updateSondes refreshes the sonde set from the archive and recomputes the
// per-sonde look angles and landing estimates.
func (m *model) updateSondes() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := m.points.LatestPositions(ctx, positionMaxAge)
	if err != nil {
		m.err = fmt.Sprintf("Database error: %v", err)
		return
	}

	entries := make([]sondeEntry, 0, len(records))
	for _, rec := range records {
		entry := sondeEntry{
			rec:  rec,
			look: geodesy.ComputeLookAngle(m.observer, rec.Position()),
		}
		if est, err := descent.EstimateFromRecord(rec, m.observer.Altitude); err == nil {
			entry.landing = &est
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].look.GreatCircleDistance < entries[j].look.GreatCircleDistance
	})

	m.sondes = entries
	m.lastUpdate = time.Now()

	if m.selected >= len(m.sondes) {
		m.selected = len(m.sondes) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	// Follow the tracked sonde across re-sorts; drop tracking when it ages out
	if m.tracking {
		found := false
		for i, s := range m.sondes {
			if s.rec.FlightSerial() == m.trackSerial {
				m.selected = i
				found = true
				break
			}
		}
		if !found {
			m.tracking = false
			m.trackSerial = ""
		}
	}
}

// trackBySerial selects and tracks the first sonde whose serial starts with
// the given prefix.
func (m *model) trackBySerial(query string) {
	if query == "" {
		return
	}
	for i, s := range m.sondes {
		if strings.HasPrefix(strings.ToUpper(s.rec.FlightSerial()), query) {
			m.selected = i
			m.tracking = true
			m.trackSerial = s.rec.FlightSerial()
			return
		}
	}
	m.err = fmt.Sprintf("No sonde matching %q", query)
}

func (m model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	sun := geodesy.CalculateSunPosition(geodesy.Observer{Location: m.observer}, time.Now())

	b.WriteString(titleStyle.Render(fmt.Sprintf("SONDE SCOPE - %s", m.observerName)))
	b.WriteString("  ")
	b.WriteString(renderSunBadge(sun))
	b.WriteString("\n\n")

	b.WriteString(joinPanels(m.renderScope(), m.renderScopeInfo(sun)))
	b.WriteString("\n")

	b.WriteString(m.renderSondeList())

	if m.inputMode {
		inputStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
		b.WriteString(inputStyle.Render(fmt.Sprintf("Track serial: %s█", m.inputValue)))
		b.WriteString("\n")
	}

	if m.err != "" {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString(errStyle.Render("⚠ " + m.err))
		b.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render("↑/↓: Select  ENTER: Track  S: Stop  /: Find  +/-: Zoom  0: Reset  Q: Quit"))

	return b.String()
}

// renderSunBadge shows the sun elevation and twilight phase. Civil and
// nautical twilight get the highlight color since that is when a sunlit
// sonde stands out against the sky.
func renderSunBadge(sun geodesy.SunPosition) string {
	phase := sun.Twilight()

	color := "241"
	switch phase {
	case geodesy.PhaseDay:
		color = "226"
	case geodesy.PhaseCivil, geodesy.PhaseNautical:
		color = "208"
	case geodesy.PhaseAstronomical, geodesy.PhaseNight:
		color = "63"
	}

	badge := fmt.Sprintf("☀ %+.1f° %s", sun.Elevation, geodesy.TwilightName(phase))
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(badge)
}

// renderSondeList renders the scrollable sonde table below the scope.
func (m model) renderSondeList() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	b.WriteString(headerStyle.Render(fmt.Sprintf("SONDES (%d)", len(m.sondes))))
	b.WriteString("\n")

	if len(m.sondes) == 0 {
		dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
		b.WriteString(dimStyle.Render("  No sondes heard in the last 10 minutes"))
		b.WriteString("\n")
		return b.String()
	}

	columnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	b.WriteString(columnStyle.Render("  SERIAL        TYPE          ALT       V/S    RANGE      AZ      EL   AGE"))
	b.WriteString("\n")

	start := 0
	if len(m.sondes) > listRows && m.selected >= listRows {
		start = m.selected - listRows + 1
	}
	end := start + listRows
	if end > len(m.sondes) {
		end = len(m.sondes)
	}

	selectedStyle := lipgloss.NewStyle().Background(lipgloss.Color("237"))

	for i := start; i < end; i++ {
		s := m.sondes[i]

		vv := 0.0
		if s.rec.VelV != nil {
			vv = *s.rec.VelV
		}
		age := time.Since(s.rec.Datetime)

		marker := " "
		if m.tracking && s.rec.FlightSerial() == m.trackSerial {
			marker = "◉"
		}

		row := fmt.Sprintf("%s %-12s %-10s %7.0fm %+6.1f %7.1fkm %6.1f° %6.1f°",
			marker,
			s.rec.FlightSerial(),
			s.rec.Type,
			s.rec.Alt,
			vv,
			s.look.GreatCircleDistance/1000.0,
			s.look.Bearing,
			s.look.Elevation,
		)
		ageText := fmt.Sprintf("  %3.0fs", age.Seconds())

		if i == m.selected {
			b.WriteString(selectedStyle.Render("→ " + row + ageText))
		} else {
			ageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ageColor(age)))
			b.WriteString("  " + row + ageStyle.Render(ageText))
		}
		b.WriteString("\n")
	}

	if end < len(m.sondes) || start > 0 {
		dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d of %d shown", end-start, len(m.sondes))))
		b.WriteString("\n")
	}

	return b.String()
}

// ageColor maps frame age to a traffic-light color.
func ageColor(age time.Duration) string {
	switch {
	case age > 60*time.Second:
		return "196"
	case age > 30*time.Second:
		return "226"
	default:
		return "46"
	}
}

// joinPanels places two multi-line panels side by side.
func joinPanels(left, right string) string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")

	n := len(leftLines)
	if len(rightLines) > n {
		n = len(rightLines)
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		if i < len(leftLines) {
			b.WriteString(leftLines[i])
		}
		b.WriteString("  ")
		if i < len(rightLines) {
			b.WriteString(rightLines[i])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	m := model{
		cfg:          cfg,
		points:       db.NewTelemetryRepository(database),
		observer:     cfg.Observer.Position(),
		observerName: cfg.Observer.Name,
		radiusKm:     cfg.SondeHub.SearchRadiusKm,
		width:        120,
		height:       40,
	}
	m.updateSondes()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running scope: %v\n", err)
		os.Exit(1)
	}
}
