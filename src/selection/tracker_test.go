package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerThreshold(t *testing.T) {
	tests := []struct {
		name  string
		end   Point
		want  Event
		state State
	}{
		{"distance 5 is cancelled", Point{X: 103, Y: 104}, EventCancelled, StateNone},
		{"distance exactly 10 is cancelled", Point{X: 106, Y: 108}, EventCancelled, StateNone},
		{"distance 15 is finalized", Point{X: 109, Y: 112}, EventFinalized, StateFinalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			require.Equal(t, EventStarted, tr.DragStart(Point{X: 100, Y: 100}))
			require.Equal(t, EventDragging, tr.DragMove(tt.end))
			assert.Equal(t, tt.want, tr.DragEnd())
			assert.Equal(t, tt.state, tr.State())
		})
	}
}

func TestTrackerCancelDiscardsGeometry(t *testing.T) {
	tr := NewTracker()
	tr.DragStart(Point{X: 10, Y: 10})
	tr.DragMove(Point{X: 12, Y: 12})
	require.Equal(t, EventCancelled, tr.DragEnd())

	_, ok := tr.Geometry()
	assert.False(t, ok)
	_, ok = tr.Rect()
	assert.False(t, ok)
}

func TestTrackerFinalizedIsFrozen(t *testing.T) {
	tr := NewTracker()
	tr.DragStart(Point{X: 200, Y: 200})
	tr.DragMove(Point{X: 100, Y: 150})
	require.Equal(t, EventFinalized, tr.DragEnd())

	// Hovering over the panel after finalize must not move the selection.
	assert.Equal(t, EventNone, tr.DragMove(Point{X: 900, Y: 900}))
	assert.Equal(t, EventNone, tr.DragEnd())

	g, ok := tr.Geometry()
	require.True(t, ok)
	assert.True(t, g.Finalized)
	assert.Equal(t, Point{X: 100, Y: 150}, g.Current)

	r, ok := tr.Rect()
	require.True(t, ok)
	assert.Equal(t, Rect{Min: Point{X: 100, Y: 150}, Max: Point{X: 200, Y: 200}}, r)
}

func TestTrackerNewDragSupersedesFinalized(t *testing.T) {
	tr := NewTracker()
	tr.DragStart(Point{X: 0, Y: 0})
	tr.DragMove(Point{X: 50, Y: 50})
	require.Equal(t, EventFinalized, tr.DragEnd())

	assert.Equal(t, EventStarted, tr.DragStart(Point{X: 300, Y: 300}))
	g, ok := tr.Geometry()
	require.True(t, ok)
	assert.False(t, g.Finalized)
	assert.Equal(t, g.Start, g.Current)
	assert.Equal(t, StateDragging, tr.State())
}

func TestTrackerMoveAndEndIgnoredWhenIdle(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, EventNone, tr.DragMove(Point{X: 1, Y: 1}))
	assert.Equal(t, EventNone, tr.DragEnd())
	assert.Equal(t, StateNone, tr.State())
}

func TestTrackerEscapeFromAnyState(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, EventClose, tr.Escape())
	tr.DragStart(Point{})
	assert.Equal(t, EventClose, tr.Escape())
	tr.DragMove(Point{X: 40, Y: 40})
	tr.DragEnd()
	assert.Equal(t, EventClose, tr.Escape())
}
