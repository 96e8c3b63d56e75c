package gui

import (
	"fyne.io/fyne/v2"

	"ai-shot/src/presentation"
	"ai-shot/src/selection"
	"ai-shot/src/session"
)

// panelMode is which part of the panel is shown.
type panelMode int

const (
	modeHidden panelMode = iota
	modePrompt
	modeStreaming
	modeError
)

func (m panelMode) String() string {
	switch m {
	case modeHidden:
		return "hidden"
	case modePrompt:
		return "prompt"
	case modeStreaming:
		return "streaming"
	case modeError:
		return "error"
	default:
		return "unknown"
	}
}

func modeFor(v session.View) panelMode {
	if !v.Finalized {
		return modeHidden
	}
	switch v.State.Kind {
	case presentation.Streaming:
		return modeStreaming
	case presentation.Error:
		return modeError
	default:
		return modePrompt
	}
}

// statusLine is the one-line status under the response.
func statusLine(v session.View) string {
	switch v.State.Kind {
	case presentation.Error:
		return "Error: " + v.State.Message
	case presentation.Streaming:
		switch {
		case v.Finished:
			return ""
		case v.State.Text == "" && v.State.Thoughts != "":
			return "Thinking..."
		case v.State.Text == "":
			return "Waiting for response..."
		default:
			return "Streaming..."
		}
	}
	return ""
}

// box is an axis-aligned rectangle in canvas units.
type box struct {
	X, Y, W, H float32
}

func (b box) pos() fyne.Position { return fyne.NewPos(b.X, b.Y) }
func (b box) size() fyne.Size    { return fyne.NewSize(b.W, b.H) }

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// maskBoxes returns the four dimmed strips around sel: top, bottom, left and
// right. Without a selection the top strip covers the whole canvas.
func maskBoxes(sel selection.Rect, has bool, size fyne.Size) [4]box {
	w, h := size.Width, size.Height
	if !has {
		return [4]box{{0, 0, w, h}}
	}
	sel = selection.RectFromPoints(sel.Min, sel.Max)
	x0 := clamp32(float32(sel.Min.X), 0, w)
	y0 := clamp32(float32(sel.Min.Y), 0, h)
	x1 := clamp32(float32(sel.Max.X), 0, w)
	y1 := clamp32(float32(sel.Max.Y), 0, h)
	return [4]box{
		{0, 0, w, y0},
		{0, y1, w, h - y1},
		{0, y0, x0, y1 - y0},
		{x1, y0, w - x1, y1 - y0},
	}
}

// selectionBox is sel normalised and clamped to the canvas.
func selectionBox(sel selection.Rect, size fyne.Size) box {
	sel = selection.RectFromPoints(sel.Min, sel.Max)
	x0 := clamp32(float32(sel.Min.X), 0, size.Width)
	y0 := clamp32(float32(sel.Min.Y), 0, size.Height)
	x1 := clamp32(float32(sel.Max.X), 0, size.Width)
	y1 := clamp32(float32(sel.Max.Y), 0, size.Height)
	return box{x0, y0, x1 - x0, y1 - y0}
}

// panelFrame places a panel of the given height next to sel. Panels flipped
// above the selection grow upwards from the anchor.
func panelFrame(sel selection.Rect, screen fyne.Size, height float32) box {
	p := session.PanelPosition(sel, selection.Size{Width: float64(screen.Width), Height: float64(screen.Height)})
	y := float32(p.Y)
	if p.Above {
		y -= height
	}
	y = clamp32(y, 0, max(screen.Height-height, 0))
	return box{X: float32(p.X), Y: y, W: float32(p.Width), H: height}
}
