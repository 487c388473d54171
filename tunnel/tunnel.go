// Package tunnel provides the reliable transport used during session
// bootstrap: an SSH connection that can run the remote helper command
// and capture its output. The transport lives only for the bootstrap;
// the session facade closes it before the native session goes live.
package tunnel

import "context"

// Transport abstracts the encrypted control channel to the target host.
type Transport interface {
	// Connect establishes the transport.
	Connect(ctx context.Context) error

	// Exec opens a fresh command channel on the transport.
	Exec(ctx context.Context) (ExecChannel, error)

	// Addr returns the remote address in host:port form.
	Addr() string

	// Close tears down the transport and frees resources.
	Close() error

	// IsAlive reports whether the underlying connection is still up.
	IsAlive() bool
}

// ExecChannel is a single remote command execution whose output is
// captured as it arrives, so a poll loop can inspect everything
// written so far without blocking on reads.
type ExecChannel interface {
	// Start launches the command. It may be called at most once.
	Start(command string) error

	// Output returns a snapshot of the cumulative output (stdout and
	// stderr interleaved). It never blocks.
	Output() []byte

	// Err reports how the command ended: nil while it is still
	// running, io.EOF after a clean exit, and the failure otherwise.
	Err() error

	// Close releases the channel. Idempotent.
	Close() error
}
