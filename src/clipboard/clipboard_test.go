package clipboard

import (
	"testing"
)

func TestWrite(t *testing.T) {
	// Requires a desktop session; headless runners have no clipboard.
	if err := Init(); err != nil {
		t.Skipf("clipboard not available: %v", err)
	}
	if err := Write("test text"); err != nil {
		t.Errorf("Write: %v", err)
	}
}

func TestSystemWriteText(t *testing.T) {
	if err := Init(); err != nil {
		t.Skipf("clipboard not available: %v", err)
	}
	if err := (System{}).WriteText("ai-shot"); err != nil {
		t.Errorf("WriteText: %v", err)
	}
}
