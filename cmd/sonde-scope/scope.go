package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

// Terminal cells are roughly twice as tall as wide, so X distances are
// stretched by 1/scopeAspectRatio to keep the rings round.
const scopeAspectRatio = 0.5

// scopeSize returns the plot dimensions for the current terminal size,
// reserving room for the info panel on the right and the list below.
func (m model) scopeSize() (int, int) {
	w := m.width - 44
	if w < 64 {
		w = 64
	}
	h := m.height - 16
	if h < 22 {
		h = 22
	}
	return w, h
}

// scopeScale returns screen cells per kilometer at the current zoom.
func (m model) scopeScale(w, h int) float64 {
	maxY := float64(h/2 - 2)
	maxX := float64(w/2-2) * scopeAspectRatio
	max := maxY
	if maxX < maxY {
		max = maxX
	}
	return max / m.radiusKm
}

// scopeToScreen converts a bearing/range pair to a grid cell. North is up.
// Returns -1,-1 when the target falls outside the plot.
func (m model) scopeToScreen(bearing, distanceKm float64) (int, int) {
	if distanceKm > m.radiusKm {
		return -1, -1
	}

	w, h := m.scopeSize()
	centerX := (w - 2) / 2
	centerY := h / 2
	scale := m.scopeScale(w, h)

	bearingRad := bearing * math.Pi / 180.0
	screenDist := distanceKm * scale

	dx := int(screenDist * math.Sin(bearingRad) / scopeAspectRatio)
	dy := -int(screenDist * math.Cos(bearingRad)) // Y grows downward

	x := centerX + dx
	y := centerY + dy
	if x < 0 || x >= w-2 || y < 0 || y >= h {
		return -1, -1
	}
	return x, y
}

// ringSpacing picks the ring interval that keeps at most five rings on the plot.
func ringSpacing(radiusKm float64) float64 {
	for _, interval := range []float64{10, 25, 50, 100, 250, 500} {
		if radiusKm/interval <= 5 {
			return interval
		}
	}
	return 1000
}

// renderScope renders the polar plot.
func (m model) renderScope() string {
	w, h := m.scopeSize()

	var scope strings.Builder
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	scope.WriteString(borderStyle.Render("┌" + strings.Repeat("─", w-2) + "┐"))
	scope.WriteString("\n")

	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = make([]rune, w-2)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	centerX := (w - 2) / 2
	centerY := h / 2
	scale := m.scopeScale(w, h)
	maxScreenRadius := m.radiusKm * scale

	// Range rings with distance labels at the top of each ring
	spacing := ringSpacing(m.radiusKm)
	for dist := spacing; dist < m.radiusKm; dist += spacing {
		screenRadius := int(dist * scale)
		drawRing(grid, centerX, centerY, screenRadius, '·')

		label := fmt.Sprintf("%.0f", dist)
		if dist >= 1000 {
			label = fmt.Sprintf("%.0fk", dist/1000)
		}
		labelY := centerY - screenRadius
		labelX := centerX - len(label)/2
		if labelY >= 0 && labelY < h && labelX >= 0 && labelX+len(label) < w-2 {
			for j, ch := range label {
				grid[labelY][labelX+j] = ch
			}
		}
	}

	// Cardinal directions at the edge of the plot
	if centerY-int(maxScreenRadius) >= 0 {
		grid[centerY-int(maxScreenRadius)][centerX] = 'N'
	}
	if centerY+int(maxScreenRadius) < h {
		grid[centerY+int(maxScreenRadius)][centerX] = 'S'
	}
	if eastX := centerX + int(maxScreenRadius/scopeAspectRatio); eastX < w-2 {
		grid[centerY][eastX] = 'E'
	}
	if westX := centerX - int(maxScreenRadius/scopeAspectRatio); westX >= 0 {
		grid[centerY][westX] = 'W'
	}

	// Observation site at the center
	grid[centerY][centerX] = '⌂'

	type sondeLabel struct {
		x, y int
		text string
	}
	var labels []sondeLabel

	for i, s := range m.sondes {
		x, y := m.scopeToScreen(s.look.Bearing, s.look.GreatCircleDistance/1000.0)
		if x < 0 || y < 0 {
			continue
		}

		symbol := '○'
		if s.rec.Descending() {
			symbol = '◇'
		}
		isSpecial := false
		if i == m.selected {
			symbol = '●'
			isSpecial = true
		}
		if m.tracking && s.rec.FlightSerial() == m.trackSerial {
			symbol = '◉'
			isSpecial = true
		}

		grid[y][x] = symbol

		if isSpecial {
			labels = append(labels, sondeLabel{x: x + 2, y: y, text: s.rec.FlightSerial()})
		}

		drawDriftVector(grid, x, y, s.rec)
	}

	// Labels go on last so drift vectors never overwrite them
	for _, label := range labels {
		for i, ch := range label.text {
			lx := label.x + i
			if label.y >= 0 && label.y < h && lx >= 0 && lx < w-2 {
				if grid[label.y][lx] == ' ' || grid[label.y][lx] == '·' {
					grid[label.y][lx] = ch
				}
			}
		}
	}

	for y := 0; y < h; y++ {
		scope.WriteString(borderStyle.Render("│"))
		for x := 0; x < w-2; x++ {
			char := grid[y][x]
			switch char {
			case '⌂':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true).Render(string(char)))
			case '◉':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true).Render(string(char)))
			case '●':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(string(char)))
			case '○':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case '◇':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(string(char)))
			case 'N', 'E', 'S', 'W':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true).Render(string(char)))
			case '·':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(string(char)))
			case '→', '-':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(string(char)))
			case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'k':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Render(string(char)))
			default:
				if (char >= 'A' && char <= 'Z') || (char >= 'a' && char <= 'z') {
					scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(string(char)))
				} else {
					scope.WriteRune(char)
				}
			}
		}
		scope.WriteString(borderStyle.Render("│"))
		scope.WriteString("\n")
	}

	scope.WriteString(borderStyle.Render("└" + strings.Repeat("─", w-2) + "┘"))

	return scope.String()
}

// drawRing draws a range ring using Bresenham's circle algorithm with the
// X coordinates stretched for the cell aspect ratio.
func drawRing(grid [][]rune, cx, cy, radius int, char rune) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		xScaled := int(float64(x) / scopeAspectRatio)
		yScaled := int(float64(y) / scopeAspectRatio)

		setCell(grid, cx+xScaled, cy+y, char)
		setCell(grid, cx+yScaled, cy+x, char)
		setCell(grid, cx-yScaled, cy+x, char)
		setCell(grid, cx-xScaled, cy+y, char)
		setCell(grid, cx-xScaled, cy-y, char)
		setCell(grid, cx-yScaled, cy-x, char)
		setCell(grid, cx+yScaled, cy-x, char)
		setCell(grid, cx+xScaled, cy-y, char)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// setCell sets a grid cell if it is in bounds, only overwriting empty space
// or a previous ring mark.
func setCell(grid [][]rune, x, y int, char rune) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) {
		if grid[y][x] == ' ' || grid[y][x] == '·' {
			grid[y][x] = char
		}
	}
}

// drawDriftVector draws the sonde's horizontal drift direction when it is
// moving faster than 5 m/s and reports a heading.
func drawDriftVector(grid [][]rune, x, y int, rec telemetry.Record) {
	if rec.VelH == nil || rec.Heading == nil || *rec.VelH < 5.0 {
		return
	}

	length := int(*rec.VelH/15.0) + 1
	if length > 4 {
		length = 4
	}

	headingRad := *rec.Heading * math.Pi / 180.0

	for i := 1; i <= length; i++ {
		dx := int(float64(i) * math.Sin(headingRad) / scopeAspectRatio)
		dy := -int(float64(i) * math.Cos(headingRad))

		nx, ny := x+dx, y+dy
		if ny >= 0 && ny < len(grid) && nx >= 0 && nx < len(grid[0]) {
			if grid[ny][nx] == ' ' || grid[ny][nx] == '·' {
				if i == length {
					grid[ny][nx] = '→'
				} else {
					grid[ny][nx] = '-'
				}
			}
		}
	}
}

// renderScopeInfo renders the data panel beside the plot.
func (m model) renderScopeInfo(sun geodesy.SunPosition) string {
	var info strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	info.WriteString(headerStyle.Render("POLAR SCOPE"))
	info.WriteString("\n\n")

	inRange := 0
	for _, s := range m.sondes {
		if s.look.GreatCircleDistance/1000.0 <= m.radiusKm {
			inRange++
		}
	}

	info.WriteString(fmt.Sprintf("%s %.4f°, %.4f°\n", labelStyle.Render("Site:  "), m.observer.Latitude, m.observer.Longitude))
	info.WriteString(fmt.Sprintf("%s %.0f km (rings %.0f km)\n", labelStyle.Render("Range: "), m.radiusKm, ringSpacing(m.radiusKm)))
	info.WriteString(fmt.Sprintf("%s %d in range, %d heard\n", labelStyle.Render("Sondes:"), inRange, len(m.sondes)))
	info.WriteString(fmt.Sprintf("%s %+.1f° az %.1f°\n", labelStyle.Render("Sun:   "), sun.Elevation, sun.Azimuth))
	if !m.lastUpdate.IsZero() {
		info.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Update:"), m.lastUpdate.Format("15:04:05")))
	}
	info.WriteString("\n")

	if m.selected < len(m.sondes) {
		s := m.sondes[m.selected]

		info.WriteString(headerStyle.Render("SELECTED"))
		if m.tracking && s.rec.FlightSerial() == m.trackSerial {
			info.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(" ◉ TRACKING"))
		}
		info.WriteString("\n\n")

		info.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Serial:"), s.rec.FlightSerial()))
		if s.rec.Type != "" {
			sondeType := s.rec.Type
			if s.rec.Subtype != "" && s.rec.Subtype != s.rec.Type {
				sondeType += " (" + s.rec.Subtype + ")"
			}
			info.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Type:  "), sondeType))
		}

		vv := 0.0
		if s.rec.VelV != nil {
			vv = *s.rec.VelV
		}
		arrow := "↑"
		if s.rec.Descending() {
			arrow = "↓"
		}
		info.WriteString(fmt.Sprintf("%s %.0f m %s %.1f m/s\n", labelStyle.Render("Alt:   "), s.rec.Alt, arrow, math.Abs(vv)))
		info.WriteString(fmt.Sprintf("%s %.1f° / %.1f°\n", labelStyle.Render("Az/El: "), s.look.Bearing, s.look.Elevation))
		info.WriteString(fmt.Sprintf("%s %.1f km (slant %.1f)\n", labelStyle.Render("Range: "), s.look.GreatCircleDistance/1000.0, s.look.StraightLineDistance/1000.0))

		if s.landing != nil {
			info.WriteString(fmt.Sprintf("%s %s (%s)\n",
				labelStyle.Render("Land:  "),
				formatETA(s.landing.TimeToGround),
				s.landing.Touchdown.Local().Format("15:04:05")))
			info.WriteString(fmt.Sprintf("%s %.1f m/s at sea level\n", labelStyle.Render("Rate:  "), s.landing.SeaLevelRate))
		} else {
			info.WriteString(fmt.Sprintf("%s ascending\n", labelStyle.Render("Land:  ")))
		}

		// Sun glare warning when the sonde sits close to the sun line
		if sun.AboveHorizon() {
			sep := sun.AngularSeparation(s.look.Elevation, s.look.Bearing)
			if sep < 15.0 {
				warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
				info.WriteString(warnStyle.Render(fmt.Sprintf("⚠ %.0f° from the sun", sep)))
				info.WriteString("\n")
			}
		}
	}

	return info.String()
}

// formatETA renders a countdown as 12m34s.
func formatETA(d time.Duration) string {
	d = d.Round(time.Second)
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
	}
	return fmt.Sprintf("%dm%02ds", mins, secs)
}
