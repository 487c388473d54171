// Package capability defines what happens over an established mosh
// session.  Each Capability encapsulates a single attachment
// behaviour (raw interactive terminal, plain byte relay) and operates
// on a Session rather than the facade directly, which keeps
// capabilities testable and decoupled from transport details.
package capability

import (
	"context"

	"gomosh/internal/session"
)

// Capability drives a single attached session.  Implementations
// include the raw-terminal attachment (Interactive) and the plain
// pipe shuttle (Relay).
type Capability interface {
	// Handle runs the capability against the given session.  It
	// blocks until the session is done or the context is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
