//go:build windows

package notification

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mbOK        = 0x00000000
	mbIconError = 0x00000010
	mbTopmost   = 0x00040000
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
)

// ShowBlockingError shows a modal message box and returns when it is dismissed.
func ShowBlockingError(title, message string) {
	title, message = format(title, message)
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		writeFallback(title, message)
		return
	}
	messagePtr, err := windows.UTF16PtrFromString(message)
	if err != nil {
		writeFallback(title, message)
		return
	}
	_, _, _ = procMessageBoxW.Call(
		0,
		uintptr(unsafe.Pointer(messagePtr)),
		uintptr(unsafe.Pointer(titlePtr)),
		uintptr(mbOK|mbIconError|mbTopmost),
	)
}
