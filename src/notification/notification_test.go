package notification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	title, msg := format("  ", " boom \n")
	assert.Equal(t, "ai-shot", title)
	assert.Equal(t, "boom", msg)

	_, long := format("t", strings.Repeat("x", maxMessageLen+50))
	assert.Len(t, long, maxMessageLen+3)
	assert.True(t, strings.HasSuffix(long, "..."))
}
