//go:build !windows

package notification

// ShowBlockingError writes the error to stderr on platforms without a native dialog.
func ShowBlockingError(title, message string) {
	writeFallback(format(title, message))
}
