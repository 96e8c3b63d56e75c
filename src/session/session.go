// Package session drives one overlay lifetime: the selection gesture, the
// prompt and settings panel, and the request whose results are shown.
// A Session is owned by the UI goroutine.
package session

import (
	"errors"
	"image"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-shot/src/messages"
	"ai-shot/src/presentation"
	"ai-shot/src/request"
	"ai-shot/src/selection"
	"ai-shot/src/settings"
)

// DefaultPrompt is used when the prompt box is left blank.
const DefaultPrompt = "Explain this image in detail."

var (
	ErrNoSelection   = errors.New("no finalized selection")
	ErrNothingToCopy = errors.New("no response to copy")
	ErrClosed        = errors.New("session closed")
)

// Clipboard receives copied responses.
type Clipboard interface {
	WriteText(text string) error
}

type Options struct {
	Screenshot image.Image
	Store      settings.Store
	// Request configures the controller; Screenshot and Store are filled in
	// from the fields above.
	Request   request.Options
	Clipboard Clipboard
	// AutoCopy copies the answer to the clipboard once a request finishes.
	AutoCopy bool
	// InitialPrompt pre-fills the prompt box.
	InitialPrompt string
	Logger        zerolog.Logger
}

// TickResult reports what a Tick changed.
type TickResult struct {
	Changed  bool
	Finished bool
	Copied   bool
}

// Result is what the session ends with, reported by the binaries.
type Result struct {
	Selection  selection.Rect
	UISize     selection.Size
	Prompt     string
	Answer     string
	Selected   bool
	Generation messages.Generation
}

type Session struct {
	id       string
	tracker  *selection.Tracker
	ctrl     *request.Controller
	state    *presentation.State
	settings settings.Settings
	clip     Clipboard
	autoCopy bool
	log      zerolog.Logger

	uiSize   selection.Size
	prompt   string
	closed   bool
	result   Result
	finished bool
}

// New creates a session. Settings are loaded from the store once.
func New(opts Options) *Session {
	id := uuid.NewString()
	log := opts.Logger.With().Str("component", "session").Str("session", id).Logger()

	ro := opts.Request
	ro.Screenshot = opts.Screenshot
	ro.Store = opts.Store
	ro.Logger = log

	s := &Session{
		id:       id,
		tracker:  selection.NewTracker(),
		ctrl:     request.New(ro),
		state:    presentation.New(),
		settings: opts.Store.Load(),
		clip:     opts.Clipboard,
		autoCopy: opts.AutoCopy,
		log:      log,
		prompt:   opts.InitialPrompt,
	}
	if opts.Screenshot != nil {
		b := opts.Screenshot.Bounds()
		s.uiSize = selection.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
	log.Debug().Str("model", s.settings.Model).Msg("session started")
	return s
}

func (s *Session) ID() string { return s.id }

// Ready is signalled when results are waiting for Tick.
func (s *Session) Ready() <-chan struct{} { return s.ctrl.Ready() }

// SetUISize records the logical size the screenshot is displayed at.
func (s *Session) SetUISize(size selection.Size) { s.uiSize = size }

func (s *Session) UISize() selection.Size { return s.uiSize }

// PointerDown starts a new selection. Any previous selection and response
// are discarded and the prompt is cleared.
func (s *Session) PointerDown(p selection.Point) selection.Event {
	if s.closed {
		return selection.EventNone
	}
	ev := s.tracker.DragStart(p)
	if ev == selection.EventStarted {
		s.ctrl.Abandon()
		s.state.Reset()
		s.prompt = ""
		s.finished = false
	}
	return ev
}

func (s *Session) PointerMove(p selection.Point) selection.Event {
	if s.closed {
		return selection.EventNone
	}
	return s.tracker.DragMove(p)
}

func (s *Session) PointerUp() selection.Event {
	if s.closed {
		return selection.EventNone
	}
	ev := s.tracker.DragEnd()
	switch ev {
	case selection.EventFinalized:
		r, _ := s.tracker.Rect()
		s.log.Debug().Float64("w", r.Width()).Float64("h", r.Height()).Msg("selection finalized")
	case selection.EventCancelled:
		s.log.Debug().Msg("selection too small, cancelled")
	}
	return ev
}

// Escape always asks for the overlay to close.
func (s *Session) Escape() selection.Event { return s.tracker.Escape() }

func (s *Session) SetPrompt(p string) { s.prompt = p }

func (s *Session) Prompt() string { return s.prompt }

// Settings returns a copy of the current settings.
func (s *Session) Settings() settings.Settings { return s.settings }

// UpdateSettings edits the settings used by the next submission.
func (s *Session) UpdateSettings(edit func(*settings.Settings)) {
	edit(&s.settings)
}

// Submit sends the finalized selection with the current prompt, or
// DefaultPrompt when it is blank.
func (s *Session) Submit() (messages.Generation, error) {
	if s.closed {
		return 0, ErrClosed
	}
	g, ok := s.tracker.Geometry()
	if !ok || !g.Finalized {
		return 0, ErrNoSelection
	}
	prompt := s.prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	rect := g.Rect()
	s.finished = false
	gen := s.ctrl.Submit(rect, s.uiSize, prompt, s.settings, s.state)
	s.result = Result{
		Selection:  rect,
		UISize:     s.uiSize,
		Prompt:     prompt,
		Selected:   true,
		Generation: gen,
	}
	return gen, nil
}

// Back returns to the prompt box. The running request, if any, is left to
// finish but its results are ignored.
func (s *Session) Back() {
	s.ctrl.Abandon()
	s.state.Reset()
	s.finished = false
}

// Tick applies pending results. Call it once per UI frame.
func (s *Session) Tick() TickResult {
	if s.closed {
		return TickResult{}
	}
	dr := s.ctrl.Drain(s.state)
	res := TickResult{Changed: dr.Applied > 0, Finished: dr.Finished}
	if dr.Finished {
		s.finished = true
		s.result.Answer = s.state.Text()
		if s.autoCopy && s.state.Text() != "" {
			if err := s.Copy(); err != nil {
				s.log.Warn().Err(err).Msg("auto-copy failed")
			} else {
				res.Copied = true
			}
		}
	}
	return res
}

// Copy puts the current answer on the clipboard.
func (s *Session) Copy() error {
	text := s.state.Text()
	if text == "" {
		return ErrNothingToCopy
	}
	if s.clip == nil {
		return errors.New("clipboard not configured")
	}
	return s.clip.WriteText(text)
}

// Close stops accepting input and releases the controller. Workers still
// running are cancelled and their results discarded.
func (s *Session) Close() Result {
	if s.closed {
		return s.result
	}
	s.closed = true
	if s.result.Answer == "" && s.state.Kind() == presentation.Streaming {
		s.result.Answer = s.state.Text()
	}
	s.ctrl.Close()
	s.log.Debug().Bool("selected", s.result.Selected).Msg("session closed")
	return s.result
}

func (s *Session) Closed() bool { return s.closed }

// View is a snapshot of everything the overlay draws.
type View struct {
	Selection    selection.Rect
	HasSelection bool
	Finalized    bool
	Prompt       string
	State        presentation.Snapshot
	Finished     bool
	Settings     settings.Settings
}

func (s *Session) View() View {
	v := View{
		Prompt:   s.prompt,
		State:    s.state.Snapshot(),
		Finished: s.finished,
		Settings: s.settings,
	}
	if g, ok := s.tracker.Geometry(); ok {
		v.Selection = g.Rect()
		v.HasSelection = true
		v.Finalized = g.Finalized
	}
	return v
}
