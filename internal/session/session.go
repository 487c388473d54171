// Package session represents one attached connection lifecycle,
// binding the composed mosh stream with the local I/O endpoints and
// shared context.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it's reading from os.Stdin
// or a test buffer, it just uses the session's Input/Output.
package session

import (
	"io"

	"gomosh/internal/metrics"
	"gomosh/util"
)

// Stream is the duplex session surface a capability drives: byte I/O
// plus the window-size and host-lifecycle hooks. *mosh.Session is the
// production implementation.
type Stream interface {
	io.ReadWriter
	SetDimensions(rows, cols, widthPx, heightPx uint16)
	Suspend()
	Resume()
	IsConnected() bool
}

// Session encapsulates the runtime context for one attachment.
// Capabilities operate on sessions rather than on the mosh facade
// directly, enabling clean testing and I/O substitution.
type Session struct {
	Stream  Stream
	Input   io.Reader
	Output  io.Writer
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// New creates a Session bound to the given stream and I/O pair.
func New(stream Stream, input io.Reader, output io.Writer,
	logger *util.Logger, collector *metrics.Collector) *Session {
	return &Session{
		Stream:  stream,
		Input:   input,
		Output:  output,
		Logger:  logger,
		Metrics: collector,
	}
}
