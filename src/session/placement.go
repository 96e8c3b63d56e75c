package session

import (
	"math"

	"ai-shot/src/selection"
)

const (
	PanelSpacing      = 10.0
	PanelMinSpace     = 400.0
	PanelMinWidth     = 400.0
	PanelMaxWidth     = 800.0
	panelWidthFactor  = 0.3
	panelScreenMargin = 10.0
)

// Placement anchors the response panel. When Above is set, Y is the panel's
// bottom edge; otherwise it is the top edge.
type Placement struct {
	X, Y  float64
	Width float64
	Above bool
}

// PanelWidth is 30% of the screen width, clamped to [400, 800].
func PanelWidth(screenWidth float64) float64 {
	return math.Min(math.Max(screenWidth*panelWidthFactor, PanelMinWidth), PanelMaxWidth)
}

// PanelPosition centres the panel under the selection, flipping it above
// when there is too little room below and more room above.
func PanelPosition(sel selection.Rect, screen selection.Size) Placement {
	sel = selection.RectFromPoints(sel.Min, sel.Max)
	w := PanelWidth(screen.Width)

	x := sel.Center().X - w/2
	maxX := screen.Width - w - panelScreenMargin
	x = math.Max(math.Min(x, maxX), panelScreenMargin)

	p := Placement{X: x, Y: sel.Max.Y + PanelSpacing, Width: w}
	spaceBelow := screen.Height - p.Y
	if spaceBelow < PanelMinSpace && sel.Min.Y > spaceBelow {
		p.Y = sel.Min.Y - PanelSpacing
		p.Above = true
	}
	return p
}
