// Package mosh composes the session bootstrap: authenticate over the
// reliable transport, launch the remote helper, scrape its connect
// line, tear the reliable channel down, spawn the native client, and
// supervise it until the session ends. One Session serves one
// connection; it is consumed by Connect and cannot be re-dialed.
package mosh

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"gomosh/bootstrap"
	"gomosh/client"
	"gomosh/config"
	"gomosh/install"
	ncerr "gomosh/internal/errors"
	"gomosh/internal/metrics"
	"gomosh/tunnel"
	"gomosh/util"
)

// Native is the handle to the spawned native client. *client.Session
// is the production implementation; tests substitute fakes.
type Native interface {
	io.ReadWriteCloser
	Pid() int
	Connected() bool
	WatchExit(onExit func())
	Resize(rows, cols, widthPx, heightPx uint16) error
	Suspend() error
	Resume() error
}

// Spawner forks the native client. Exactly one spawn happens per
// session, on the single crossing from stream to datagram transport.
type Spawner func(client.Command) (Native, error)

type dims struct {
	rows, cols, widthPx, heightPx uint16
}

// Session is the composed transport handed to the caller: a duplex
// byte stream whose other end is the remote shell, reachable over
// whichever transport the current phase dictates.
type Session struct {
	id        string
	cfg       *config.Config
	transport tunnel.Transport
	bridge    Bridge
	installer *install.Service
	logger    *util.Logger
	metrics   *metrics.Collector
	spawn     Spawner

	phase      atomic.Int32
	started    atomic.Bool
	dispatched atomic.Bool

	// ready is closed once setup reaches a verdict, Connected or
	// terminal, releasing readers blocked on the handoff.
	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	native  Native
	pending *dims // dimensions recorded before the native client exists
}

// NewSession wires a session from its collaborators. A nil bridge is
// replaced with a discard bridge; a nil installer skips the asset
// wait entirely.
func NewSession(cfg *config.Config, tr tunnel.Transport, bridge Bridge,
	installer *install.Service, logger *util.Logger, collector *metrics.Collector) *Session {
	if bridge == nil {
		bridge = NopBridge{}
	}
	s := &Session{
		id:        uuid.NewString()[:8],
		cfg:       cfg,
		transport: tr,
		bridge:    bridge,
		installer: installer,
		logger:    logger,
		metrics:   collector,
		ready:     make(chan struct{}),
	}
	s.spawn = func(c client.Command) (Native, error) {
		ns, err := client.Spawn(c, logger, collector)
		if err != nil {
			return nil, err
		}
		return ns, nil
	}
	return s
}

// ID returns the session's log identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the session's current phase.
func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

// IsConnected reports whether the native session is live.
func (s *Session) IsConnected() bool {
	if s.Phase() != PhaseConnected {
		return false
	}
	s.mu.Lock()
	native := s.native
	s.mu.Unlock()
	return native != nil && native.Connected()
}

// Connect drives the whole bootstrap ladder once. Every setup
// failure is converted at this boundary into one status line and one
// ungraceful disconnect dispatch; no step is retried. A second call
// returns ErrAlreadyStarted.
func (s *Session) Connect(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ncerr.ErrAlreadyStarted
	}
	if err := s.runBootstrap(ctx); err != nil {
		auth := s.Phase() == PhaseAuthenticating
		s.failSetup(err)
		if auth {
			return err
		}
		return fmt.Errorf("%w: %w", ncerr.ErrServerStartFailed, err)
	}
	return nil
}

func (s *Session) runBootstrap(ctx context.Context) error {
	s.setPhase(PhaseAuthenticating)
	if err := s.transport.Connect(ctx); err != nil {
		return err
	}

	s.setPhase(PhaseLaunchingHelper)
	launcher := &bootstrap.Launcher{
		Transport:    s.transport,
		ServerBinary: s.cfg.ServerBinary,
		Ports:        s.cfg.UDPPorts,
		Locale:       s.cfg.Locale,
		PollInterval: s.cfg.PollInterval,
		PollAttempts: s.cfg.PollAttempts,
		Status:       s.bridge.OutputLine,
		Logger:       s.logger,
		Metrics:      s.metrics,
	}
	ch, err := launcher.Start(ctx)
	if err != nil {
		return err
	}

	s.setPhase(PhaseParsingCredentials)
	creds, err := launcher.Await(ctx, ch)
	if err != nil {
		return err
	}
	creds.Host = s.cfg.Host
	if err := creds.Validate(); err != nil {
		return err
	}

	// The reliable channel is bootstrap-only. Close it now, before
	// the native session is marked connected, so the two transports
	// are never simultaneously live for user I/O.
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("[%s] closing reliable transport: %v", s.id, err)
	}

	s.setPhase(PhaseSpawningNative)
	if s.installer != nil && !s.installer.Wait(s.cfg.InstallTimeout) {
		return ncerr.ErrInstallTimeout
	}

	ip, err := util.ResolveIP(creds.Host, s.cfg.NoDNS)
	if err != nil {
		return err
	}

	cmd := client.Command{
		Binary:   s.cfg.ClientBinary,
		Host:     ip,
		Port:     creds.Port,
		Key:      creds.Key,
		Terminfo: s.terminfoPath(),
		Locale:   s.cfg.Locale,
		Term:     s.cfg.Term,
	}
	s.mu.Lock()
	if d := s.pending; d != nil {
		cmd.Rows, cmd.Cols, cmd.WidthPx, cmd.HeightPx = d.rows, d.cols, d.widthPx, d.heightPx
	}
	s.mu.Unlock()

	native, err := s.spawn(cmd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.native = native
	s.mu.Unlock()

	native.WatchExit(s.onNativeExit)

	s.setPhase(PhaseConnected)
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("[%s] connected to %s:%s (pid %d)", s.id, ip, creds.Port, native.Pid())
	s.bridge.OnConnected()
	return nil
}

// terminfoPath resolves the terminfo database for the native client:
// explicit override, then the installer's staged path, then the first
// existing system database, then the fixed temp path. The chain never
// fails; the native client degrades to built-in behavior when the
// last resort is absent.
func (s *Session) terminfoPath() string {
	if s.cfg.TerminfoPath != "" {
		return s.cfg.TerminfoPath
	}
	if s.installer != nil {
		if p := s.installer.Path(); p != "" {
			return p
		}
	}
	if p := install.Detect(); p != "" {
		return p
	}
	return config.DefaultTerminfoTempPath
}

// onNativeExit runs on the exit-watch task when the native client
// terminates on its own. It is the only liveness detection there is:
// the facade never polls the process otherwise.
func (s *Session) onNativeExit() {
	s.logger.Info("[%s] native client exited", s.id)
	s.setPhaseTerminal(PhaseClosed)
	s.dispatch(false)
}

// failSetup converts a setup error into the single user-visible
// outcome: one explanatory line and one ungraceful dispatch.
func (s *Session) failSetup(err error) {
	s.metrics.SetupFailed()

	var be *ncerr.BootstrapError
	if ncerr.As(err, &be) && len(be.Output) > 0 {
		s.logger.Debug("[%s] helper said before failing: %q", s.id, be.OutputTail())
	}
	s.logger.Error("[%s] session setup failed: %v", s.id, err)

	authFailure := s.Phase() == PhaseAuthenticating
	s.setPhaseTerminal(PhaseFailed)
	s.readyOnce.Do(func() { close(s.ready) })

	if authFailure {
		s.bridge.OutputLine("Could not connect: " + err.Error())
	} else {
		s.bridge.OutputLine("The mosh server failed to start.")
	}
	s.dispatch(false)

	if cerr := s.transport.Close(); cerr != nil {
		s.logger.Debug("[%s] closing transport after failure: %v", s.id, cerr)
	}
}

// dispatch tells the bridge the session ended. Every ending path
// funnels through here and the guard admits exactly one of them,
// however close and exit-detection interleave.
func (s *Session) dispatch(graceful bool) {
	if !s.dispatched.CompareAndSwap(false, true) {
		return
	}
	s.metrics.Disconnected(graceful)
	s.bridge.DispatchDisconnect(graceful)
}

// ── duplex stream contract ───────────────────────────────────────────

// Read blocks until the session is connected, then reads from the
// native stream. End of stream is promoted to ErrSessionLost: the
// session is dead, not draining. Reads block the calling goroutine;
// keep them off any UI thread.
func (s *Session) Read(p []byte) (int, error) {
	<-s.ready
	s.mu.Lock()
	native := s.native
	s.mu.Unlock()
	if s.Phase() != PhaseConnected || native == nil {
		return 0, ncerr.ErrClosed
	}

	n, err := native.Read(p)
	switch {
	case err == nil:
	case ncerr.Is(err, io.EOF):
		err = ncerr.ErrSessionLost
	case ncerr.Is(err, os.ErrClosed):
		err = ncerr.ErrClosed
	}
	return n, err
}

// Write sends bytes to the native stream. Before the handoff it
// fails with ErrNotConnected; there is no buffering of early input.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	native := s.native
	s.mu.Unlock()
	switch {
	case s.Phase() == PhaseConnected && native != nil:
		return native.Write(p)
	case s.Phase().Terminal():
		return 0, ncerr.ErrClosed
	default:
		return 0, ncerr.ErrNotConnected
	}
}

// Flush is part of the stream contract; a PTY-backed stream has
// nothing to flush.
func (s *Session) Flush() error { return nil }

// SetDimensions records or forwards the window size. Before the
// native client exists the size is remembered and applied at spawn;
// afterwards it is forwarded best-effort. It never fails the session.
func (s *Session) SetDimensions(rows, cols, widthPx, heightPx uint16) {
	s.mu.Lock()
	native := s.native
	if native == nil {
		s.pending = &dims{rows: rows, cols: cols, widthPx: widthPx, heightPx: heightPx}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	native.Resize(rows, cols, widthPx, heightPx) //nolint:errcheck // best effort
}

// Suspend stops the native client while the host application is in
// the background. No-op unless connected.
func (s *Session) Suspend() {
	if native := s.connectedNative(); native != nil {
		native.Suspend() //nolint:errcheck // best effort
	}
}

// Resume continues the native client when the host application
// returns to the foreground.
func (s *Session) Resume() {
	if native := s.connectedNative(); native != nil {
		native.Resume() //nolint:errcheck // best effort
	}
}

func (s *Session) connectedNative() Native {
	if s.Phase() != PhaseConnected {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.native
}

// Close releases the session: terminate the native client if one is
// owned, close the reliable transport if it is still up, and dispatch
// a graceful disconnect unless the session already ended another way.
// Idempotent, and safe to race with the exit watch. Every release
// step runs regardless of the others failing.
func (s *Session) Close() error {
	s.readyOnce.Do(func() { close(s.ready) })
	s.setPhaseTerminal(PhaseClosed)

	s.mu.Lock()
	native := s.native
	s.mu.Unlock()
	if native != nil {
		native.Close() //nolint:errcheck // release errors are logged downstream
	}
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("[%s] closing transport: %v", s.id, err)
	}

	s.dispatch(true)
	if s.logger.Level() >= util.LogDebug {
		s.logger.Debug("[%s] session metrics: %s", s.id, s.metrics.JSON())
	}
	return nil
}

// ── phase bookkeeping ────────────────────────────────────────────────

func (s *Session) setPhase(p Phase) {
	old := Phase(s.phase.Swap(int32(p)))
	s.logger.Debug("[%s] phase %s → %s", s.id, old, p)
}

// setPhaseTerminal moves to a terminal phase unless the session is
// already terminal; the first ending wins.
func (s *Session) setPhaseTerminal(p Phase) {
	for {
		cur := s.phase.Load()
		if Phase(cur).Terminal() {
			return
		}
		if s.phase.CompareAndSwap(cur, int32(p)) {
			s.logger.Debug("[%s] phase %s → %s", s.id, Phase(cur), p)
			return
		}
	}
}
