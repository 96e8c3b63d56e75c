package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 16

var (
	iconFrame = color.RGBA{0x00, 0x78, 0xd4, 0xff}
	iconFill  = color.RGBA{0x00, 0x78, 0xd4, 0x40}
	iconSpark = color.RGBA{0xff, 0xb9, 0x00, 0xff}
)

// drawIcon renders a dashed selection frame with a small spark in the
// bottom right corner.
func drawIcon() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 2; y <= 11; y++ {
		for x := 2; x <= 11; x++ {
			edge := x == 2 || x == 11 || y == 2 || y == 11
			switch {
			case edge && (x+y)%3 != 0:
				img.SetRGBA(x, y, iconFrame)
			case !edge:
				img.SetRGBA(x, y, iconFill)
			}
		}
	}
	for i := 10; i <= 14; i++ {
		img.SetRGBA(i, 12, iconSpark)
		img.SetRGBA(12, i, iconSpark)
	}
	return img
}

func iconPNG() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, drawIcon()); err != nil {
		return nil
	}
	return buf.Bytes()
}

// wrapICO embeds PNG data in a single-image ICO container.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}

// Icon returns the tray icon in the format the platform tray expects.
func Icon() []byte {
	data := iconPNG()
	if runtime.GOOS == "windows" {
		return wrapICO(data)
	}
	return data
}
