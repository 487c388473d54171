package capability

import (
	"context"

	"gomosh/internal/session"
	"gomosh/util"
)

// Relay copies data bidirectionally between the mosh stream and the
// session's input/output — the mode for piped stdio, where no
// terminal handling applies.
type Relay struct{}

// Handle shuttles bytes between the stream and the local I/O
// endpoints until one side closes or the context is cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	return util.RelayStreams(ctx, sess.Stream, sess.Input, sess.Output)
}
