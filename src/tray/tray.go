// Package tray shows the resident daemon in the system tray.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"
)

// Options configure the tray menu.
type Options struct {
	Hotkey    string
	OnCapture func()
	OnQuit    func()
	Logger    zerolog.Logger
}

// Tray owns the systray menu. Run must be called from the main goroutine.
type Tray struct {
	opts  Options
	log   zerolog.Logger
	mu       sync.Mutex
	ready    bool
	quitting bool
	about    string
}

func New(opts Options) *Tray {
	return &Tray{
		opts: opts,
		log:  opts.Logger.With().Str("component", "tray").Logger(),
	}
}

// Run blocks until Quit is called or the menu's Quit item is clicked.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the icon and makes Run return. Calling it before the tray is
// ready makes Run return as soon as it is.
func (t *Tray) Quit() {
	t.mu.Lock()
	t.quitting = true
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.Quit()
	}
}

// SetOnCapture sets the Capture menu callback. Call it before Run.
func (t *Tray) SetOnCapture(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opts.OnCapture = fn
}

// Tooltip returns the tooltip text for the idle daemon.
func (t *Tray) Tooltip() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	text := "ai-shot"
	if t.opts.Hotkey != "" {
		text += " (" + t.opts.Hotkey + ")"
	}
	if t.about != "" {
		text += "\n" + t.about
	}
	return text
}

// SetAboutExtra appends a line to the tooltip, for example the resident port.
func (t *Tray) SetAboutExtra(extra string) {
	t.mu.Lock()
	t.about = extra
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.SetTooltip(t.Tooltip())
	}
}

func (t *Tray) onReady() {
	systray.SetIcon(Icon())
	systray.SetTitle("ai-shot")
	t.mu.Lock()
	t.ready = true
	quitting := t.quitting
	onCapture := t.opts.OnCapture
	t.mu.Unlock()
	if quitting {
		systray.Quit()
		return
	}
	systray.SetTooltip(t.Tooltip())

	captureLabel := "Capture"
	if t.opts.Hotkey != "" {
		captureLabel = fmt.Sprintf("Capture (%s)", t.opts.Hotkey)
	}
	mCapture := systray.AddMenuItem(captureLabel, "Capture the screen and open the overlay")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit ai-shot")

	t.log.Info().Msg("tray ready")
	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				if onCapture != nil {
					onCapture()
				}
			case <-mQuit.ClickedCh:
				t.log.Info().Msg("quit requested from tray")
				if t.opts.OnQuit != nil {
					t.opts.OnQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
}
