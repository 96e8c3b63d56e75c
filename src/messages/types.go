package messages

// Generation identifies one submitted analysis request. Generations increase
// monotonically over an overlay session; zero means no request is current.
type Generation uint64

// Event is a notification sent by a background worker to the UI goroutine.
// Events are immutable values; consume them with a type switch over the
// concrete types below.
type Event interface {
	Type() string
	Generation() Generation
}

// Type constants for logging and identification
const (
	TypeTextChunk    = "TextChunk"
	TypeThoughtChunk = "ThoughtChunk"
	TypeFailed       = "Failed"
	TypeFinished     = "Finished"
)

// TextChunk - a piece of the answer text
type TextChunk struct {
	Gen  Generation
	Text string
}

func (m TextChunk) Type() string           { return TypeTextChunk }
func (m TextChunk) Generation() Generation { return m.Gen }

// ThoughtChunk - a piece of the model's intermediate reasoning
type ThoughtChunk struct {
	Gen  Generation
	Text string
}

func (m ThoughtChunk) Type() string           { return TypeThoughtChunk }
func (m ThoughtChunk) Generation() Generation { return m.Gen }

// Failed - terminal error for a generation; Message is shown verbatim
type Failed struct {
	Gen     Generation
	Message string
}

func (m Failed) Type() string           { return TypeFailed }
func (m Failed) Generation() Generation { return m.Gen }

// Finished - the stream for a generation was exhausted without error
type Finished struct {
	Gen Generation
}

func (m Finished) Type() string           { return TypeFinished }
func (m Finished) Generation() Generation { return m.Gen }
