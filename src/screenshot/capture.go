package screenshot

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/kbinani/screenshot"
)

var (
	ErrMonitorNotFound = errors.New("monitor not found")
	ErrCapture         = errors.New("screen capture failed")
)

// MonitorInfo describes one active display in virtual-screen coordinates.
type MonitorInfo struct {
	Index  int
	Bounds image.Rectangle
}

func (m MonitorInfo) String() string {
	return fmt.Sprintf("Monitor %d: %dx%d at (%d,%d)",
		m.Index, m.Bounds.Dx(), m.Bounds.Dy(), m.Bounds.Min.X, m.Bounds.Min.Y)
}

// Enumerate lists the active displays. It returns nil when none are found.
func Enumerate() []MonitorInfo {
	n := screenshot.NumActiveDisplays()
	out := make([]MonitorInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, MonitorInfo{Index: i, Bounds: screenshot.GetDisplayBounds(i)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Capture grabs the full contents of monitor index at raw pixel resolution.
// The returned image is never modified afterwards and may be shared.
func Capture(index int) (*image.RGBA, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active displays found", ErrCapture)
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("%w: index %d (have %d)", ErrMonitorNotFound, index, n)
	}
	img, err := screenshot.CaptureDisplay(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return img, nil
}

// SavePNG writes img to path. The daemon uses it to hand a capture to a
// freshly spawned overlay process.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%w: png: %v", ErrEncode, err)
	}
	return f.Close()
}

// Load decodes a PNG or JPEG file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}
