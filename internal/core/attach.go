package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"gomosh/config"
	"gomosh/install"
	"gomosh/internal/capability"
	"gomosh/internal/metrics"
	"gomosh/internal/session"
	"gomosh/mosh"
	"gomosh/util"
)

// AttachMode runs the full bootstrap-then-attach flow: connect over
// SSH, launch the remote helper, spawn the native client, and bind
// the caller's terminal to it until either side ends the session.
type AttachMode struct {
	Config *config.Config
	Logger *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *AttachMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *AttachMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run connects and attaches. It returns when the session ends, the
// context is cancelled, or setup fails.
func (m *AttachMode) Run(ctx context.Context) error {
	cfg := m.Config
	collector := metrics.New()

	// Stage terminfo in the background while the SSH handshake and
	// helper launch run; the facade waits for it just before spawn.
	installer := install.NewService(cfg.TerminfoSrc, "", m.Logger)
	installer.Start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := &terminalBridge{logger: m.Logger, cancel: cancel}
	sess := mosh.NewSession(cfg, buildTransport(cfg, m.Logger), bridge,
		installer, m.Logger, collector)
	defer sess.Close() //nolint:errcheck

	if err := sess.Connect(ctx); err != nil {
		return err
	}

	handler := m.pickCapability()
	err := handler.Handle(ctx, session.New(sess, m.stdin(), m.stdout(), m.Logger, collector))
	if err != nil && ctx.Err() != nil {
		// The bridge cancelled us because the session ended; the
		// relay error is just teardown noise.
		err = nil
	}
	return err
}

// pickCapability selects the attachment behaviour: the raw terminal
// when stdin is a TTY, a plain relay for piped stdio.
func (m *AttachMode) pickCapability() capability.Capability {
	if f, ok := m.stdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &capability.Interactive{}
	}
	return &capability.Relay{}
}

// terminalBridge surfaces session events on the CLI: status lines to
// stderr, disconnects as a context cancellation that unwinds the
// attach loop.
type terminalBridge struct {
	logger *util.Logger
	cancel context.CancelFunc
}

func (b *terminalBridge) OutputLine(line string) {
	fmt.Fprintln(os.Stderr, line)
}

func (b *terminalBridge) OnConnected() {
	b.logger.Info("session connected")
}

func (b *terminalBridge) DispatchDisconnect(graceful bool) {
	if graceful {
		b.logger.Info("session closed")
	} else {
		fmt.Fprintln(os.Stderr, "Connection to the mosh session lost.")
	}
	b.cancel()
}
