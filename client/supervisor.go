package client

import (
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Signal numbers delivered to the native client. Termination is a
// plain SIGTERM with no escalation to SIGKILL: the native client
// handles it by shutting its datagram session down.
const (
	sigStop      = unix.SIGSTOP
	sigContinue  = unix.SIGCONT
	sigTerminate = unix.SIGTERM
)

// WatchExit starts the one background task that reaps the native
// process. It blocks in wait() for the process's entire life; this is
// the only path by which an externally-terminated native client is
// discovered. When the process exits while the session still counts
// as connected, exactly one caller of onExit is elected; a session
// already closed by request skips the callback entirely.
func (s *Session) WatchExit(onExit func()) {
	go func() {
		err := s.wait()
		s.logger.Debug("client: native process exited: %v", err)

		// The child is reaped, so its pid may be recycled by the
		// kernel at any moment. Clear ownership before the CAS so a
		// racing Close cannot swap out the stale pid and signal it.
		s.pid.Store(0)

		if s.connected.CompareAndSwap(true, false) {
			s.closeStreams()
			if onExit != nil {
				onExit()
			}
			return
		}
		// Close() won the race; it already released everything.
	}()
}

// Resize forwards new window dimensions to the native client's PTY.
// Best effort: with no owned process it is a silent no-op, and a
// failed ioctl is logged, never fatal.
func (s *Session) Resize(rows, cols, widthPx, heightPx uint16) error {
	if s.pid.Load() == 0 {
		s.logger.Debug("client: resize ignored, no native process")
		return nil
	}
	ws := &pty.Winsize{Rows: rows, Cols: cols, X: widthPx, Y: heightPx}
	if err := pty.Setsize(s.master, ws); err != nil {
		s.logger.Warn("client: resize to %dx%d failed: %v", cols, rows, err)
	}
	return nil
}

// Suspend stops the native client when the host application goes to
// the background. No-op when no process is owned or the session is
// no longer connected.
func (s *Session) Suspend() error {
	return s.signal(sigStop, "suspend")
}

// Resume continues a previously suspended native client when the host
// application returns to the foreground.
func (s *Session) Resume() error {
	return s.signal(sigContinue, "resume")
}

func (s *Session) signal(sig unix.Signal, what string) error {
	if !s.connected.Load() {
		return nil
	}
	pid := s.pid.Load()
	if pid == 0 {
		return nil
	}
	if err := unix.Kill(int(pid), sig); err != nil {
		s.logger.Warn("client: %s (signal %d) failed: %v", what, sig, err)
		return nil
	}
	s.metrics.SignalSent()
	s.logger.Debug("client: %s sent to pid %d", what, pid)
	return nil
}

// Close terminates the native client and releases the handle. It is
// idempotent and safe to race with the exit watch: the pid swap
// elects exactly one killer, and every stream handle is closed
// independently so one failing release never blocks the others.
func (s *Session) Close() error {
	s.connected.Store(false)

	if pid := s.pid.Swap(0); pid != 0 {
		if err := unix.Kill(int(pid), sigTerminate); err != nil {
			s.logger.Debug("client: terminate pid %d: %v", pid, err)
		} else {
			s.metrics.SignalSent()
			s.logger.Debug("client: terminate sent to pid %d", pid)
		}
	}
	s.closeStreams()
	return nil
}
