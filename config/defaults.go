package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultLocale is used for LANG and LC_ALL when the user did not
	// pin one.  The helper refuses to run without a UTF-8 locale.
	DefaultLocale = "en_US.UTF-8"

	// DefaultServerBinary is the remote helper started over SSH.
	DefaultServerBinary = "mosh-server"

	// DefaultClientBinary is the native client spawned locally once
	// credentials are in hand.
	DefaultClientBinary = "mosh-client"

	// DefaultTerm is the TERM handed to the native client.
	DefaultTerm = "xterm-256color"

	// DefaultPollInterval is the cadence at which the helper's output
	// is scanned for the connect line.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultPollAttempts bounds the connect-line scan count.
	DefaultPollAttempts = 50

	// DefaultPollCeiling is the total window the bootstrap will wait
	// for the helper: DefaultPollAttempts ticks of DefaultPollInterval.
	DefaultPollCeiling = 5 * time.Second

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultInstallTimeout is how long the bootstrap waits for the
	// asset installer to become ready before giving up.
	DefaultInstallTimeout = 10 * time.Second

	// DefaultTerminfoTempPath is the last resort of the terminfo
	// fallback chain when neither an override nor a system database
	// is available.
	DefaultTerminfoTempPath = "/tmp/gomosh-terminfo"
)

// DefaultTerminfoDirs are the system terminfo databases probed in
// order when no explicit path is configured.
var DefaultTerminfoDirs = []string{
	"/usr/share/terminfo",
	"/lib/terminfo",
	"/etc/terminfo",
}
