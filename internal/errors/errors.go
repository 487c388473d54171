// Package errors provides domain-specific error types for gomosh.
//
// These types carry structured context (operation, address, bootstrap
// stage, retryability) that helps callers decide how to handle failures
// and provides better diagnostics than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrTransportClosed is returned by operations on a reliable
	// transport that has already been torn down.
	ErrTransportClosed = errors.New("transport is closed")

	// ErrNotConnected is returned by session I/O attempted before the
	// native session is up.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed is returned by session operations after Close.
	ErrClosed = errors.New("session is closed")

	// ErrAlreadyStarted is returned when Connect is invoked on a
	// session that has already been consumed. Re-dialing a session is
	// not a supported path.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNoCredentials marks a poll tick that found no connect line
	// yet. It is the retryable miss inside the bootstrap window.
	ErrNoCredentials = errors.New("no credentials in helper output")

	// ErrParseTimeout means the polling ceiling elapsed without the
	// helper ever printing a connect line.
	ErrParseTimeout = errors.New("timed out waiting for connect line")

	// ErrServerStartFailed is the single outcome every setup failure
	// collapses to at the user boundary.
	ErrServerStartFailed = errors.New("mosh server failed to start")

	// ErrSessionLost marks an established native session ending from
	// the remote side.
	ErrSessionLost = errors.New("session lost")

	ErrAuthFailed = errors.New("authentication failed")

	// ErrHostKeyMismatch means the remote presented a key that
	// contradicts the known_hosts entry for it.
	ErrHostKeyMismatch = errors.New("host key mismatch")

	// ErrInstallTimeout means the asset installer did not become ready
	// within the configured wait.
	ErrInstallTimeout = errors.New("installer not ready in time")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "resolve", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "channel", "exec"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// BootstrapError represents a failure while starting the remote helper
// or scraping its connect line. Output holds whatever the helper wrote
// before the failure; it is diagnostic material for the log, never for
// the user-visible line.
type BootstrapError struct {
	Stage  string // "exec", "start", "poll", "parse"
	Output []byte // cumulative helper output at time of failure
	Err    error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap %s: %v", e.Stage, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// OutputTail returns the last non-empty line of the captured helper
// output, or "" when nothing useful was captured.
func (e *BootstrapError) OutputTail() string {
	lines := strings.Split(strings.TrimSpace(string(e.Output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// WrapBootstrap creates a BootstrapError carrying the helper output
// captured so far.
func WrapBootstrap(stage string, output []byte, err error) *BootstrapError {
	return &BootstrapError{Stage: stage, Output: output, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	// net.OpError with Temporary() hint
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use gomosh/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }
