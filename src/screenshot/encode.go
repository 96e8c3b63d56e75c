package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"ai-shot/src/selection"
)

// ErrEncode is returned when a cropped region cannot be encoded.
var ErrEncode = errors.New("image encoding failed")

// DefaultJPEGQuality balances upload size against legibility of small text.
const DefaultJPEGQuality = 90

// Encoder crops a region out of an immutable image and encodes it for upload.
type Encoder interface {
	CropAndEncode(img image.Image, r selection.PixelRect) ([]byte, error)
}

// JPEGEncoder encodes crops as baseline JPEG.
type JPEGEncoder struct {
	Quality int
}

func NewJPEGEncoder() JPEGEncoder { return JPEGEncoder{Quality: DefaultJPEGQuality} }

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// CropAndEncode never writes to img. A region that does not intersect the
// image yields selection.ErrEmptySelection.
func (e JPEGEncoder) CropAndEncode(img image.Image, r selection.PixelRect) ([]byte, error) {
	if img == nil || r.Empty() {
		return nil, selection.ErrEmptySelection
	}
	b := img.Bounds()
	rect := image.Rect(b.Min.X+r.X, b.Min.Y+r.Y, b.Min.X+r.X+r.Width, b.Min.Y+r.Y+r.Height).Intersect(b)
	if rect.Empty() {
		return nil, selection.ErrEmptySelection
	}

	var crop image.Image
	if si, ok := img.(subImager); ok {
		crop = si.SubImage(rect)
	} else {
		dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
		crop = dst
	}

	q := e.Quality
	if q <= 0 || q > 100 {
		q = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
