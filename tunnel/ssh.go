package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	ncerr "gomosh/internal/errors"
	"gomosh/util"
)

// SSHConfig holds everything needed to dial the target host.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// AllowKeyboardInteractive enables keyboard-interactive as a
	// fallback auth method.  Hosts behind PAM one-time-password or
	// challenge setups authenticate this way rather than with plain
	// password auth.
	AllowKeyboardInteractive bool
}

// SSHTransport implements [Transport] by opening an SSH connection and
// running commands over session channels.
type SSHTransport struct {
	config *SSHConfig
	client *ssh.Client
	logger *util.Logger
	mu     sync.RWMutex
	alive  bool
}

// NewSSHTransport creates a transport that is ready to [Connect].
func NewSSHTransport(cfg *SSHConfig, logger *util.Logger) *SSHTransport {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHTransport{config: cfg, logger: logger}
}

// Connect dials the target and completes the SSH handshake.
func (t *SSHTransport) Connect(ctx context.Context) error {
	authMethods, err := BuildAuthMethods(t.config)
	if err != nil {
		return ncerr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}

	hkCallback, err := hostKeyCallback(t.config)
	if err != nil {
		return ncerr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         t.config.ConnTimeout,
	}

	addr := t.Addr()
	t.logger.Debug("SSH: dialing %s as %s", addr, t.config.User)

	// Use a context-aware TCP dial so callers can cancel.
	var dialer net.Dialer
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ncerr.Wrap("dial", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if err != nil {
		tcpConn.Close()
		// A known_hosts entry that contradicts the presented key is a
		// different failure from an unreachable or unknown host; give
		// callers a sentinel to match on.
		var keyErr *knownhosts.KeyError
		if ncerr.As(err, &keyErr) && len(keyErr.Want) > 0 {
			err = fmt.Errorf("%w: %v", ncerr.ErrHostKeyMismatch, err)
		}
		return ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	t.mu.Lock()
	t.client = client
	t.alive = true
	t.mu.Unlock()

	go t.monitor()

	return nil
}

// Exec opens a session channel for a single command.
func (t *SSHTransport) Exec(ctx context.Context) (ExecChannel, error) {
	t.mu.RLock()
	client := t.client
	alive := t.alive
	t.mu.RUnlock()

	if !alive || client == nil {
		return nil, ncerr.ErrNotConnected
	}

	t.logger.Debug("SSH: opening exec channel")
	sess, err := client.NewSession()
	if err != nil {
		return nil, ncerr.WrapSSH("channel", t.config.Host, t.config.Port, err)
	}
	return newExecChannel(sess, t.logger), nil
}

// Addr returns the target in host:port form.
func (t *SSHTransport) Addr() string {
	return fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)
}

// Close shuts down the SSH connection.
func (t *SSHTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

// IsAlive reports whether the transport is still connected.
func (t *SSHTransport) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

// monitor blocks until the SSH connection closes and flips the alive flag.
func (t *SSHTransport) monitor() {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return
	}

	err := client.Wait()

	t.mu.Lock()
	t.alive = false
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("SSH transport closed: %v", err)
	} else {
		t.logger.Debug("SSH transport closed")
	}
}
