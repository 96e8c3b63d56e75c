// Package notification reports fatal errors to users who launched ai-shot
// without a console, for example from the daemon hotkey.
package notification

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// stderr receives the message on platforms without a native dialog.
var stderr io.Writer = os.Stderr

const maxMessageLen = 1000

// format trims the message to something a dialog can show.
func format(title, message string) (string, string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "ai-shot"
	}
	message = strings.TrimSpace(message)
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen] + "..."
	}
	return title, message
}

func writeFallback(title, message string) {
	fmt.Fprintf(stderr, "%s: %s\n", title, message)
}
