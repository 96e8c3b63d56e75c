// Package presentation holds what the overlay panel shows for the current
// request. A State is owned by the UI goroutine and is not safe for
// concurrent use.
package presentation

import "strings"

// Kind discriminates the State variants.
type Kind int

const (
	Idle Kind = iota
	Streaming
	Error
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "Idle"
	case Streaming:
		return "Streaming"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// State is Idle, Streaming{Text, Thoughts} or Error{Message}. Text and
// thoughts only ever grow while streaming; any transition clears them.
type State struct {
	kind     Kind
	text     strings.Builder
	thoughts strings.Builder
	message  string
}

// New returns an Idle state.
func New() *State { return &State{} }

func (s *State) Kind() Kind { return s.kind }

// Text returns the accumulated answer. Empty unless Streaming.
func (s *State) Text() string { return s.text.String() }

// Thoughts returns the accumulated reasoning. Empty unless Streaming.
func (s *State) Thoughts() string { return s.thoughts.String() }

// Message returns the error message. Empty unless Error.
func (s *State) Message() string { return s.message }

// Reset moves to Idle.
func (s *State) Reset() {
	s.kind = Idle
	s.text.Reset()
	s.thoughts.Reset()
	s.message = ""
}

// BeginStreaming moves to Streaming with empty text and thoughts.
func (s *State) BeginStreaming() {
	s.Reset()
	s.kind = Streaming
}

// AppendText appends to the answer. Ignored unless Streaming.
func (s *State) AppendText(chunk string) bool {
	if s.kind != Streaming {
		return false
	}
	s.text.WriteString(chunk)
	return true
}

// AppendThought appends to the reasoning. Ignored unless Streaming.
func (s *State) AppendThought(chunk string) bool {
	if s.kind != Streaming {
		return false
	}
	s.thoughts.WriteString(chunk)
	return true
}

// Fail moves to Error, dropping any partial text.
func (s *State) Fail(message string) {
	s.Reset()
	s.kind = Error
	s.message = message
}

// Snapshot is a copy of State safe to hand to rendering code.
type Snapshot struct {
	Kind     Kind
	Text     string
	Thoughts string
	Message  string
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Kind:     s.kind,
		Text:     s.text.String(),
		Thoughts: s.thoughts.String(),
		Message:  s.message,
	}
}
