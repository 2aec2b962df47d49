package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ProfileView is a custom tview primitive that plots the altitude profile of
// the loaded track using tcell
type ProfileView struct {
	*tview.Box
	app *App
}

// NewProfileView creates a new altitude profile view
func NewProfileView(app *App) *ProfileView {
	pv := &ProfileView{
		Box: tview.NewBox(),
		app: app,
	}
	pv.SetBorder(true).SetTitle(" Altitude Profile ")
	return pv
}

// Draw renders the altitude profile using tcell
func (pv *ProfileView) Draw(screen tcell.Screen) {
	pv.Box.DrawForSubclass(screen, pv)

	x, y, width, height := pv.GetInnerRect()

	pv.app.mu.RLock()
	track := pv.app.track
	pv.app.mu.RUnlock()

	if track == nil || len(track.Points) < 2 {
		msg := "Press ENTER on a flight to load its track"
		style := tcell.StyleDefault.Foreground(tcell.ColorGray)
		startX := x + (width-len(msg))/2
		for i, ch := range msg {
			screen.SetContent(startX+i, y+height/2, ch, nil, style)
		}
		return
	}

	// Leave room for altitude labels on the left and the time axis below
	plotX := x + 8
	plotY := y
	plotW := width - 9
	plotH := height - 2
	if plotW < 10 || plotH < 5 {
		return
	}

	first := track.Points[0].Datetime
	span := track.LastTime.Sub(first).Seconds()
	if span <= 0 {
		span = 1
	}
	maxAlt := track.MaxAltitude()
	if maxAlt <= 0 {
		maxAlt = 1
	}

	axisStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	ascentStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	descentStyle := tcell.StyleDefault.Foreground(tcell.ColorOrange)
	burstStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	// Altitude gridlines at the quarter marks
	for _, frac := range []float64{0.25, 0.5, 0.75, 1.0} {
		gy := plotY + plotH - 1 - int(frac*float64(plotH-1))
		for gx := plotX; gx < plotX+plotW; gx++ {
			screen.SetContent(gx, gy, '┄', nil, axisStyle)
		}
		label := fmt.Sprintf("%6.0fm", maxAlt*frac)
		for i, ch := range label {
			screen.SetContent(x+i, gy, ch, nil, axisStyle)
		}
	}

	// Time axis
	startLabel := first.Local().Format("15:04")
	endLabel := track.LastTime.Local().Format("15:04")
	for i, ch := range startLabel {
		screen.SetContent(plotX+i, y+height-1, ch, nil, axisStyle)
	}
	for i, ch := range endLabel {
		screen.SetContent(plotX+plotW-len(endLabel)+i, y+height-1, ch, nil, axisStyle)
	}

	// Plot the track, connecting successive samples. Ascent and descent are
	// separated by comparing neighboring altitudes so sparse logs without
	// vertical velocity still color correctly.
	burstX, burstY := -1, -1
	prevX, prevY := -1, -1
	prevAlt := track.Points[0].Alt

	for _, p := range track.Points {
		t := p.Datetime.Sub(first).Seconds()
		px := plotX + int(t/span*float64(plotW-1))
		py := plotY + plotH - 1 - int(p.Alt/maxAlt*float64(plotH-1))

		style := ascentStyle
		if p.Alt < prevAlt {
			style = descentStyle
		}

		if prevX >= 0 {
			drawLine(screen, prevX, prevY, px, py, '·', style)
		}
		screen.SetContent(px, py, '•', nil, style)

		if p.Alt == maxAlt {
			burstX, burstY = px, py
		}

		prevX, prevY = px, py
		prevAlt = p.Alt
	}

	// Burst marker on top of the curve
	if burstX >= 0 {
		screen.SetContent(burstX, burstY, '✱', nil, burstStyle)
	}
}

// drawLine draws a line using Bresenham's line algorithm
func drawLine(screen tcell.Screen, x0, y0, x1, y1 int, char rune, style tcell.Style) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		screen.SetContent(x0, y0, char, nil, style)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
