package mosh

// Bridge is the session's window to whatever hosts it: a terminal
// UI, a test harness. OutputLine carries user-visible status text;
// OnConnected fires once when the native session goes live;
// DispatchDisconnect fires exactly once per session, however it ends.
type Bridge interface {
	OutputLine(line string)
	OnConnected()
	DispatchDisconnect(graceful bool)
}

// NopBridge discards everything. Useful as a default so the session
// never has to nil-check its bridge.
type NopBridge struct{}

func (NopBridge) OutputLine(string)       {}
func (NopBridge) OnConnected()            {}
func (NopBridge) DispatchDisconnect(bool) {}
