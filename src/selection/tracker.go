package selection

// MinSelectionDistance is the drag length, in logical units, a gesture must
// exceed to count as an intentional selection rather than a click.
const MinSelectionDistance = 10.0

// State is the lifecycle state of the selection gesture.
type State int

const (
	StateNone State = iota
	StateDragging
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateDragging:
		return "dragging"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Event is the high-level outcome of feeding one pointer or key event into
// the tracker.
type Event int

const (
	// EventNone means the input was ignored in the current state.
	EventNone Event = iota
	// EventStarted means a new drag superseded any previous selection.
	EventStarted
	// EventDragging means the live corner moved.
	EventDragging
	// EventFinalized means the drag ended far enough from its start.
	EventFinalized
	// EventCancelled means the drag was too short and was discarded.
	EventCancelled
	// EventClose asks the caller to close the overlay without a selection.
	EventClose
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventStarted:
		return "started"
	case EventDragging:
		return "dragging"
	case EventFinalized:
		return "finalized"
	case EventCancelled:
		return "cancelled"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Geometry is the selection drawn by the user. While not finalized, Current
// follows the pointer; once finalized it is frozen at the drag-end position.
type Geometry struct {
	Start     Point
	Current   Point
	Finalized bool
}

// Rect returns the normalized rectangle spanned by the geometry.
func (g Geometry) Rect() Rect { return RectFromPoints(g.Start, g.Current) }

// Tracker turns low-level drag events into selection lifecycle events.
// It is not safe for concurrent use; it belongs to the UI goroutine.
type Tracker struct {
	state    State
	geometry Geometry
}

// NewTracker returns a tracker with no selection.
func NewTracker() *Tracker { return &Tracker{} }

// State returns the current gesture state.
func (t *Tracker) State() State { return t.state }

// Geometry returns the current selection and whether one exists.
func (t *Tracker) Geometry() (Geometry, bool) {
	if t.state == StateNone {
		return Geometry{}, false
	}
	return t.geometry, true
}

// Rect returns the normalized selection rectangle and whether one exists.
func (t *Tracker) Rect() (Rect, bool) {
	g, ok := t.Geometry()
	if !ok {
		return Rect{}, false
	}
	return g.Rect(), true
}

// DragStart begins a new selection at p. It is valid in every state and
// unconditionally supersedes the previous selection.
func (t *Tracker) DragStart(p Point) Event {
	t.geometry = Geometry{Start: p, Current: p}
	t.state = StateDragging
	return EventStarted
}

// DragMove updates the live corner. Ignored unless dragging, so hovering over
// the interaction panel never perturbs a finalized selection.
func (t *Tracker) DragMove(p Point) Event {
	if t.state != StateDragging {
		return EventNone
	}
	t.geometry.Current = p
	return EventDragging
}

// DragEnd finishes the drag. Short drags are discarded.
func (t *Tracker) DragEnd() Event {
	if t.state != StateDragging {
		return EventNone
	}
	if t.geometry.Start.Distance(t.geometry.Current) > MinSelectionDistance {
		t.geometry.Finalized = true
		t.state = StateFinalized
		return EventFinalized
	}
	t.Reset()
	return EventCancelled
}

// Escape requests closing the overlay from any state.
func (t *Tracker) Escape() Event { return EventClose }

// Reset discards any selection.
func (t *Tracker) Reset() {
	t.geometry = Geometry{}
	t.state = StateNone
}
