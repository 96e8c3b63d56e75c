package selection

import (
	"errors"
	"math"
)

// ErrEmptySelection is returned when a selection maps to a region with no
// area, either because it was degenerate or because it lies fully outside the
// image. Callers must stop before doing any encoding work.
var ErrEmptySelection = errors.New("selection area is empty or invalid")

// MapToPixels converts a selection in logical UI coordinates into a pixel
// region of an image whose raw size may differ from the UI size (HiDPI).
//
// Scale factors are computed per axis. The top-left corner is scaled and
// clamped to zero, the extents are scaled, and the region is shrunk so that
// it never extends past the image.
func MapToPixels(sel Rect, ui Size, img Size) (PixelRect, error) {
	if !positive(ui.Width) || !positive(ui.Height) || !positive(img.Width) || !positive(img.Height) {
		return PixelRect{}, ErrEmptySelection
	}
	if !finite(sel.Min.X, sel.Min.Y, sel.Max.X, sel.Max.Y) {
		return PixelRect{}, ErrEmptySelection
	}
	sel = RectFromPoints(sel.Min, sel.Max)

	scaleX := img.Width / ui.Width
	scaleY := img.Height / ui.Height

	x, width, ok := mapAxis(sel.Min.X, sel.Width(), scaleX, math.Floor(img.Width))
	if !ok {
		return PixelRect{}, ErrEmptySelection
	}
	y, height, ok := mapAxis(sel.Min.Y, sel.Height(), scaleY, math.Floor(img.Height))
	if !ok {
		return PixelRect{}, ErrEmptySelection
	}

	return PixelRect{X: x, Y: y, Width: width, Height: height}, nil
}

// mapAxis scales one axis and intersects it with [0, limit].
func mapAxis(origin, extent, scale, limit float64) (int, int, bool) {
	start := math.Floor(origin * scale)
	end := start + math.Floor(extent*scale)
	if math.IsNaN(start) || math.IsNaN(end) {
		return 0, 0, false
	}

	start = math.Min(math.Max(start, 0), limit)
	end = math.Min(math.Max(end, 0), limit)

	length := int(end - start)
	if length <= 0 {
		return 0, 0, false
	}
	return int(start), length, true
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
