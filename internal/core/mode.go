// Package core is the orchestration layer.  It composes the reliable
// transport, the session facade, and a capability into complete
// operational modes and provides a builder that selects the right
// mode from a Config.
//
// Architecture layers (bottom → top):
//
//	tunnel → bootstrap → client → mosh → capability → core → cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of gomosh (attach to a
// remote session, or emit a bookmark URI).  Each mode owns its full
// lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
