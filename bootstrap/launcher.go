package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"gomosh/config"
	ncerr "gomosh/internal/errors"
	"gomosh/internal/metrics"
	"gomosh/internal/retry"
	"gomosh/tunnel"
	"gomosh/util"
)

// Launcher starts the remote helper over the reliable transport and
// polls its output for the connect line. One Launcher serves one
// connection attempt; the poll window is bounded, there are no
// retries of the launch itself.
type Launcher struct {
	Transport tunnel.Transport

	// ServerBinary is the remote helper command; empty means the
	// shipped default. Ports pins the helper's UDP bind when non-zero.
	// Locale is exported to the remote side; empty means the shipped
	// default.
	ServerBinary string
	Ports        config.PortRange
	Locale       string

	// PollInterval and PollAttempts bound the credential scan. Zero
	// values fall back to the shipped cadence (100ms x 50). Tests
	// shrink these to keep the failure paths fast.
	PollInterval time.Duration
	PollAttempts int

	// Status receives user-visible progress lines. Nil discards them.
	Status func(line string)

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Command renders the helper invocation:
//
//	LANG=<locale> LC_ALL=<locale> <server>[ -p <ports>] new
//
// The locale travels in the command line because the exec channel
// does not forward the local environment.
func (l *Launcher) Command() string {
	locale := l.Locale
	if locale == "" {
		locale = config.DefaultLocale
	}
	server := l.ServerBinary
	if server == "" {
		server = config.DefaultServerBinary
	}
	cmd := fmt.Sprintf("LANG=%s LC_ALL=%s %s", locale, locale, server)
	if !l.Ports.IsZero() {
		cmd += " -p " + l.Ports.String()
	}
	return cmd + " new"
}

// Start opens a fresh exec channel and launches the helper on it.
// On error the channel is already closed; on success the caller owns
// it and normally hands it straight to [Launcher.Await].
func (l *Launcher) Start(ctx context.Context) (tunnel.ExecChannel, error) {
	l.status(fmt.Sprintf("Starting mosh server on %s ...", l.Transport.Addr()))

	ch, err := l.Transport.Exec(ctx)
	if err != nil {
		l.status("Could not open a channel to start the mosh server.")
		return nil, ncerr.WrapBootstrap("exec", nil, err)
	}

	cmd := l.Command()
	l.Logger.Verbose("bootstrap: launching helper: %s", cmd)
	if err := ch.Start(cmd); err != nil {
		ch.Close() //nolint:errcheck
		l.status("Could not start the mosh server.")
		return nil, ncerr.WrapBootstrap("start", nil, err)
	}
	l.Metrics.HelperLaunched()
	return ch, nil
}

// Await polls the channel's cumulative output for the connect line on
// a fixed cadence until it appears, an I/O failure ends the command,
// or the attempt budget runs out. The first scan happens immediately,
// before any sleep, so a fast helper costs no wait at all. The
// channel is always closed before Await returns, success or failure.
func (l *Launcher) Await(ctx context.Context, ch tunnel.ExecChannel) (Credentials, error) {
	defer ch.Close() //nolint:errcheck

	interval := l.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	attempts := l.PollAttempts
	if attempts <= 0 {
		attempts = config.DefaultPollAttempts
	}

	var creds Credentials
	err := retry.Fixed(interval, attempts).Do(ctx, func(attempt int) error {
		l.Metrics.PollTick()
		out := ch.Output()

		// Scan before checking the channel state: the helper prints
		// the connect line and then detaches, so output and a clean
		// exit routinely arrive inside the same tick.
		if port, key, ok := ParseCredentials(out); ok {
			l.Logger.Debug("bootstrap: connect line on attempt %d", attempt)
			creds = Credentials{Port: port, Key: key}
			return nil
		}

		switch chErr := ch.Err(); {
		case chErr == nil:
			return ncerr.ErrNoCredentials
		case chErr == io.EOF:
			// Clean exit. A helper that prints the connect line and
			// detaches can have its exit observed before the snapshot
			// above contains the line, so scan the final buffer once
			// more before giving up. No output follows a clean exit.
			out = ch.Output()
			if port, key, ok := ParseCredentials(out); ok {
				l.Logger.Debug("bootstrap: connect line arrived with helper exit, attempt %d", attempt)
				creds = Credentials{Port: port, Key: key}
				return nil
			}
			return retry.Permanent(ncerr.WrapBootstrap("poll", out,
				ncerr.New("helper exited without printing a connect line")))
		default:
			return retry.Permanent(ncerr.WrapBootstrap("poll", out, chErr))
		}
	})
	if err != nil {
		var be *ncerr.BootstrapError
		if !ncerr.As(err, &be) {
			err = ncerr.WrapBootstrap("parse", ch.Output(), ncerr.ErrParseTimeout)
		}
		l.status("The mosh server never reported a port and key.")
		return Credentials{}, err
	}
	return creds, nil
}

// Launch is Start followed by Await: the whole bootstrap in one
// blocking call, bounded by the polling ceiling.
func (l *Launcher) Launch(ctx context.Context) (Credentials, error) {
	ch, err := l.Start(ctx)
	if err != nil {
		return Credentials{}, err
	}
	return l.Await(ctx, ch)
}

func (l *Launcher) status(line string) {
	if l.Status != nil {
		l.Status(line)
	}
}
