// Package hotkey watches the global keyboard for the capture combination.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
)

// ErrInvalidHotkey is returned when a combination names no usable key.
var ErrInvalidHotkey = errors.New("invalid hotkey")

// Listener fires a callback each time the whole combination is held down.
type Listener struct {
	combo string
	m     *matcher
	log   zerolog.Logger
}

// New parses combo (for example "Ctrl+Alt+X") and prepares a listener.
func New(combo string, log zerolog.Logger) (*Listener, error) {
	keys := parseHotkey(combo)
	m, err := newMatcher(keys)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidHotkey, combo, err)
	}
	return &Listener{
		combo: combo,
		m:     m,
		log:   log.With().Str("component", "hotkey").Logger(),
	}, nil
}

// Combo returns the combination as configured.
func (l *Listener) Combo() string { return l.combo }

// Run starts the global hook and blocks until ctx is done. onTrigger runs on
// the hook goroutine and must not block for long.
func (l *Listener) Run(ctx context.Context, onTrigger func()) error {
	evChan := gohook.Start()
	if evChan == nil {
		return errors.New("hotkey: hook did not start")
	}
	defer gohook.End()
	l.log.Info().Str("hotkey", l.combo).Msg("hotkey listener started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-evChan:
			if !ok {
				l.log.Warn().Msg("event channel closed")
				return nil
			}
			var fired bool
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				fired = l.m.press(ev.Rawcode)
			case gohook.KeyUp:
				l.m.release(ev.Rawcode)
			default:
				continue
			}
			if fired {
				l.log.Info().Str("hotkey", l.combo).Msg("hotkey activated")
				l.safeCall(onTrigger)
			}
		}
	}
}

func (l *Listener) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("hotkey callback panicked")
		}
	}()
	if fn != nil {
		fn()
	}
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// matcher tracks which keys of the combination are currently held.
type matcher struct {
	mu   sync.Mutex
	keys []keyState
}

func newMatcher(names []string) (*matcher, error) {
	m := &matcher{}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: codes})
	}
	if len(m.keys) == 0 {
		return nil, errors.New("no keys")
	}
	return m, nil
}

// press records a key down and reports whether the full combination is now
// held. A firing resets the state so holding keys does not repeat.
func (m *matcher) press(code uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(code, true)
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

func (m *matcher) release(code uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(code, false)
}

func (m *matcher) set(code uint16, pressed bool) {
	for i := range m.keys {
		for _, rc := range m.keys[i].rawcodes {
			if rc == code {
				m.keys[i].pressed = pressed
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super", "meta":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var specialKeys = map[string][]uint16{
	"ctrl":        {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":         {164, 165}, // VK_LMENU, VK_RMENU
	"shift":       {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":         {91, 92},   // VK_LWIN, VK_RWIN
	"space":       {32},
	"enter":       {13},
	"return":      {13},
	"esc":         {27},
	"escape":      {27},
	"tab":         {9},
	"backspace":   {8},
	"delete":      {46},
	"del":         {46},
	"insert":      {45},
	"ins":         {45},
	"home":        {36},
	"end":         {35},
	"pageup":      {33},
	"pgup":        {33},
	"pagedown":    {34},
	"pgdn":        {34},
	"left":        {37},
	"up":          {38},
	"right":       {39},
	"down":        {40},
	"printscreen": {44},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes. Modifiers
// return both the left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	switch keyName {
	case "win", "super", "meta":
		keyName = "cmd"
	}
	if codes, ok := specialKeys[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16('A' + (c - 'a'))}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 is 112
	}
	return nil
}
