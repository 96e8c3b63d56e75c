package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconPNGDecodes(t *testing.T) {
	data := iconPNG()
	require.NotEmpty(t, data)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())
	assert.Equal(t, iconSize, img.Bounds().Dy())
}

func TestWrapICOHeader(t *testing.T) {
	data := iconPNG()
	ico := wrapICO(data)
	require.Len(t, ico, 22+len(data))

	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(ico[0:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[2:]), "type icon")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[4:]), "one image")
	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(ico[14:]))
	assert.Equal(t, uint32(22), binary.LittleEndian.Uint32(ico[18:]))
	assert.Equal(t, data, ico[22:])
}

func TestTooltip(t *testing.T) {
	tr := New(Options{Hotkey: "Ctrl+Alt+X", Logger: zerolog.Nop()})
	assert.Equal(t, "ai-shot (Ctrl+Alt+X)", tr.Tooltip())

	tr.SetAboutExtra("Resident TCP port: 49560")
	assert.Equal(t, "ai-shot (Ctrl+Alt+X)\nResident TCP port: 49560", tr.Tooltip())
}

func TestQuitBeforeReadyIsRemembered(t *testing.T) {
	tr := New(Options{Logger: zerolog.Nop()})
	tr.SetOnCapture(func() {})
	tr.Quit()
	assert.True(t, tr.quitting)
	assert.NotNil(t, tr.opts.OnCapture)
	assert.Equal(t, "ai-shot", tr.Tooltip())
}
