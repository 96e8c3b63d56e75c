package singleinstance

// This file defines the API for resident (daemon) ownership and capture
// delegation from later invocations.

import (
	"context"

	"github.com/rs/zerolog"
)

// Server owns the TCP endpoint and answers capture requests.
type Server interface {
	// Start begins listening on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess acknowledges the request. text is an optional detail.
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request asks the resident to capture a monitor and open the overlay.
type Request struct {
	Monitor int
}

// Client attempts to delegate a capture to a resident daemon.
type Client interface {
	// TryCapture scans the port range, performs the handshake and delegates.
	// If no resident is found, returns delegated=false, err=nil.
	TryCapture(ctx context.Context, monitor int) (delegated bool, detail string, err error)
}

// Options configure the endpoint. Zero ports fall back to the environment
// and then to the defaults.
type Options struct {
	PortStart int
	PortEnd   int
	Logger    zerolog.Logger
}

// NewServer returns TCP implementation.
func NewServer(opts Options) Server { return newTcpServer(opts) }

// NewClient returns TCP implementation.
func NewClient(opts Options) Client { return newTcpClient(opts) }
