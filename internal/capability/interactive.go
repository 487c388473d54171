package capability

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"gomosh/internal/session"
	"gomosh/util"
)

// resizeRate paces SIGWINCH forwarding. Window-manager drags deliver
// storms of resize signals; the limiter coalesces them while the
// buffered signal channel guarantees the final size always lands.
var resizeRate = rate.Every(50 * time.Millisecond)

// Interactive attaches the caller's terminal to the mosh stream: raw
// mode, window-size propagation, and shell job control mapped onto
// the session's suspend/resume hooks.
type Interactive struct{}

// Handle puts the controlling terminal into raw mode and relays it
// against the stream until either side ends. When the session input
// is not a terminal it degrades to a plain relay.
func (i *Interactive) Handle(ctx context.Context, sess *session.Session) error {
	tty, ok := sess.Input.(*os.File)
	if !ok || !term.IsTerminal(int(tty.Fd())) {
		sess.Logger.Debug("interactive: input is not a terminal, relaying plainly")
		return (&Relay{}).Handle(ctx, sess)
	}
	fd := int(tty.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState) //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pushSize(sess, tty)
	go i.watchResize(ctx, sess, tty)
	go i.watchJobControl(ctx, sess, tty, fd, oldState)

	return util.RelayStreams(ctx, sess.Stream, sess.Input, sess.Output)
}

// watchResize forwards window-size changes to the stream, paced by
// the limiter. The one-slot signal buffer collapses a storm into
// "latest wins".
func (i *Interactive) watchResize(ctx context.Context, sess *session.Session, tty *os.File) {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, unix.SIGWINCH)
	defer signal.Stop(winch)

	limiter := rate.NewLimiter(resizeRate, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-winch:
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		pushSize(sess, tty)
	}
}

// watchJobControl maps the caller's shell job control onto the native
// session: Ctrl-Z stops both ends, fg resumes both ends. Stop order
// is native first, then ourselves; resume order is the reverse, so
// the native client is never running against a suspended terminal.
func (i *Interactive) watchJobControl(ctx context.Context, sess *session.Session,
	tty *os.File, fd int, oldState *term.State) {
	jobs := make(chan os.Signal, 1)
	signal.Notify(jobs, unix.SIGTSTP, unix.SIGCONT)
	defer signal.Stop(jobs)

	for {
		var sig os.Signal
		select {
		case <-ctx.Done():
			return
		case sig = <-jobs:
		}

		switch sig {
		case unix.SIGTSTP:
			sess.Logger.Debug("interactive: backgrounding, suspending native client")
			sess.Stream.Suspend()
			term.Restore(fd, oldState)             //nolint:errcheck
			unix.Kill(unix.Getpid(), unix.SIGSTOP) //nolint:errcheck
		case unix.SIGCONT:
			sess.Logger.Debug("interactive: foregrounded, resuming native client")
			term.MakeRaw(fd) //nolint:errcheck
			sess.Stream.Resume()
			pushSize(sess, tty) // the window may have changed while stopped
		}
	}
}

// pushSize reads the terminal's current dimensions and hands them to
// the stream. Best effort, like every resize.
func pushSize(sess *session.Session, tty *os.File) {
	ws, err := pty.GetsizeFull(tty)
	if err != nil {
		sess.Logger.Debug("interactive: reading terminal size: %v", err)
		return
	}
	sess.Stream.SetDimensions(ws.Rows, ws.Cols, ws.X, ws.Y)
}
