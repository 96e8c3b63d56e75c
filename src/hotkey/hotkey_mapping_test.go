package hotkey

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},
		{"super", []uint16{91, 92}},

		{"a", []uint16{65}},
		{"q", []uint16{81}},
		{"x", []uint16{88}},
		{"Z", []uint16{90}},

		{"0", []uint16{48}},
		{"9", []uint16{57}},

		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},
		{"f25", nil},
		{"f01", nil},

		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},
		{"printscreen", []uint16{44}},

		{"unknown", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			assert.Equal(t, tt.expected, keyNameToRawcodes(tt.keyName))
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+X", []string{"ctrl", "alt", "x"}},
		{"Ctrl+Shift+O", []string{"ctrl", "shift", "o"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Control + Alt + e", []string{"ctrl", "alt", "e"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"Ctrl++X", []string{"ctrl", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseHotkey(tt.input))
		})
	}
}

func TestNewRejectsUnknownKeys(t *testing.T) {
	_, err := New("Ctrl+Banana", zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidHotkey)

	_, err = New("", zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidHotkey)

	l, err := New("Ctrl+Alt+X", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Alt+X", l.Combo())
}

func TestMatcherFiresOnceAllKeysHeld(t *testing.T) {
	m, err := newMatcher(parseHotkey("Ctrl+Alt+X"))
	require.NoError(t, err)

	assert.False(t, m.press(162))
	assert.False(t, m.press(165), "right alt counts as alt")
	assert.True(t, m.press(88))

	// state resets after firing
	assert.False(t, m.press(88))
}

func TestMatcherReleaseBreaksCombination(t *testing.T) {
	m, err := newMatcher(parseHotkey("Ctrl+X"))
	require.NoError(t, err)

	assert.False(t, m.press(162))
	m.release(162)
	assert.False(t, m.press(88))
	assert.True(t, m.press(163))
}
