// Package config defines the runtime configuration for gomosh and
// provides helpers for parsing host specifications, UDP port ranges,
// and mosh:// bookmark URIs.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gomosh/internal/errors"
)

// Config holds every tuneable for a single gomosh session.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	HostSpec string // raw [user@]host[:port] from argv
	User     string
	Host     string
	SSHPort  int

	// ── Native session ───────────────────────────────────────────────
	UDPPorts     PortRange // -p: pinned UDP port or range; zero value lets the server pick
	ServerBinary string    // remote helper command
	ClientBinary string    // local native client binary
	Locale       string    // LANG / LC_ALL for both ends
	Term         string    // TERM handed to the native client
	TerminfoPath string    // explicit terminfo override
	TerminfoSrc  string    // source tree for the installer to stage (optional)

	// ── SSH auth ─────────────────────────────────────────────────────
	SSHKeyPath          string
	SSHPassword         bool // true → prompt interactively
	UseSSHAgent         bool
	KeyboardInteractive bool
	StrictHostKey       bool
	KnownHostsPath      string

	// ── Behavior ─────────────────────────────────────────────────────
	Bookmark       bool // print the bookmark URI for the target and exit
	NoDNS          bool
	ConnectTimeout time.Duration
	InstallTimeout time.Duration
	PollInterval   time.Duration // cadence of the connect-line poll
	PollAttempts   int           // ticks before the bootstrap gives up

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// Default returns a Config with every knob at its shipped default.
// Env overlay and CLI flags are applied on top of this.
func Default() *Config {
	return &Config{
		SSHPort:        DefaultSSHPort,
		ServerBinary:   DefaultServerBinary,
		ClientBinary:   DefaultClientBinary,
		Locale:         DefaultLocale,
		Term:           DefaultTerm,
		ConnectTimeout: DefaultConnTimeout,
		InstallTimeout: DefaultInstallTimeout,
		PollInterval:   DefaultPollInterval,
		PollAttempts:   DefaultPollAttempts,
	}
}

// ── Port helpers ─────────────────────────────────────────────────────

// PortRange is an inclusive start–end pair for the helper's UDP bind.
// The zero value means "let the server pick".
type PortRange struct {
	Start int
	End   int
}

// IsZero reports whether no port was pinned.
func (pr PortRange) IsZero() bool { return pr.Start == 0 }

// String renders the range in the helper's -p syntax: "60001" for a
// single port, "60000:61000" for a span.
func (pr PortRange) String() string {
	if pr.IsZero() {
		return ""
	}
	if pr.Start == pr.End {
		return strconv.Itoa(pr.Start)
	}
	return fmt.Sprintf("%d:%d", pr.Start, pr.End)
}

// ParseUDPPortSpec accepts "60001" or "60000:61000" (the syntax the
// helper's -p flag takes) and validates the bounds.
func ParseUDPPortSpec(spec string) (PortRange, error) {
	if strings.Contains(spec, ":") {
		parts := strings.SplitN(spec, ":", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range start %q", parts[0])
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range end %q", parts[1])
		}
		if start < 1 || end > 65535 || start > end {
			return PortRange{}, fmt.Errorf("invalid port range %d:%d", start, end)
		}
		return PortRange{Start: start, End: end}, nil
	}

	port, err := strconv.Atoi(spec)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return PortRange{}, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return PortRange{Start: port, End: port}, nil
}

// ── Host-spec parser ─────────────────────────────────────────────────

// hostRe matches [user@]host[:port] where host is either a bracketed
// IPv6 literal or a colon-free name.
var hostRe = regexp.MustCompile(`^(?:([^@]+)@)?(\[[^\]]+\]|[^:\[\]]+)(?::(\d+))?$`)

// ParseHostSpec extracts user, host, and port from a string such as
// "alice@shell.example.com:2222" or "user@[2001:db8::1]".  Brackets
// around IPv6 literals are stripped from the returned host.  Port
// defaults to 22.
func ParseHostSpec(spec string) (user, host string, port int, err error) {
	m := hostRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid host spec %q, expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid ssh port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are ConfigError values carrying hints for the user.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &errors.ConfigError{
			Field:   "host",
			Message: "a target host is required",
			Hint:    "pass [user@]host[:port], e.g. alice@shell.example.com",
		}
	}
	if c.SSHPort < 1 || c.SSHPort > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.SSHPort,
			Message: "out of range 1-65535",
		}
	}
	if !c.UDPPorts.IsZero() {
		if c.UDPPorts.Start < 1 || c.UDPPorts.End > 65535 || c.UDPPorts.Start > c.UDPPorts.End {
			return &errors.ConfigError{
				Field:   "ports",
				Value:   c.UDPPorts.String(),
				Message: "out of range 1-65535",
				Hint:    "use a UDP port between 1 and 65535, or a low:high range",
			}
		}
	}
	if c.ServerBinary == "" {
		return &errors.ConfigError{
			Field:   "server",
			Message: "remote helper command must not be empty",
			Hint:    "the default is \"" + DefaultServerBinary + "\"",
		}
	}
	if c.ClientBinary == "" {
		return &errors.ConfigError{
			Field:   "client",
			Message: "native client binary must not be empty",
			Hint:    "the default is \"" + DefaultClientBinary + "\"",
		}
	}
	if c.Locale == "" {
		return &errors.ConfigError{
			Field:   "locale",
			Message: "locale must not be empty",
			Hint:    "the helper needs a UTF-8 locale, e.g. " + DefaultLocale,
		}
	}
	if c.NoDNS && net.ParseIP(c.Host) == nil {
		return &errors.ConfigError{
			Field:   "no-dns",
			Value:   c.Host,
			Message: "not a literal IP address",
			Hint:    "with -n the host must already be an IP",
		}
	}
	if c.PollInterval <= 0 {
		return &errors.ConfigError{
			Field:   "poll interval",
			Value:   c.PollInterval,
			Message: "must be positive",
		}
	}
	if c.PollAttempts < 1 {
		return &errors.ConfigError{
			Field:   "poll attempts",
			Value:   c.PollAttempts,
			Message: "must be at least 1",
		}
	}
	return nil
}
