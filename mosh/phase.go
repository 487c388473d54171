package mosh

// Phase is the session's position in the bootstrap ladder. A session
// moves strictly forward; Closed and Failed are terminal.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseAuthenticating
	PhaseLaunchingHelper
	PhaseParsingCredentials
	PhaseSpawningNative
	PhaseConnected
	PhaseClosed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseLaunchingHelper:
		return "launching-helper"
	case PhaseParsingCredentials:
		return "parsing-credentials"
	case PhaseSpawningNative:
		return "spawning-native"
	case PhaseConnected:
		return "connected"
	case PhaseClosed:
		return "closed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can make no further progress.
func (p Phase) Terminal() bool {
	return p == PhaseClosed || p == PhaseFailed
}
