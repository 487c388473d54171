// Package cmd wires up the CLI flags and dispatches to the session core.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"gomosh/config"
	"gomosh/internal/core"
	"gomosh/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gomosh/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate gomosh mode.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gomosh", flag.ContinueOnError)

	// ── native session ───────────────────────────────────────────
	var portSpec string
	fs.StringVarP(&portSpec, "ports", "p", "", "UDP port or range for the server (e.g. 60000:61000)")
	fs.StringVar(&cfg.ServerBinary, "server", cfg.ServerBinary, "Remote mosh-server command")
	fs.StringVar(&cfg.ClientBinary, "client", cfg.ClientBinary, "Local mosh-client binary")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale for both ends (LANG/LC_ALL)")
	fs.StringVar(&cfg.Term, "term", cfg.Term, "TERM handed to the native client")
	fs.StringVar(&cfg.TerminfoPath, "terminfo", cfg.TerminfoPath, "Terminfo database path override")
	fs.StringVar(&cfg.TerminfoSrc, "terminfo-src", cfg.TerminfoSrc, "Terminfo tree to stage before connecting")

	// ── SSH ──────────────────────────────────────────────────────
	fs.StringVarP(&cfg.SSHKeyPath, "ssh-key", "i", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.KeyboardInteractive, "kbd-interactive", cfg.KeyboardInteractive, "Allow keyboard-interactive auth")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkeys", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── behavior ─────────────────────────────────────────────────
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "SSH connection timeout in seconds")
	fs.BoolVar(&cfg.Bookmark, "bookmark", false, "Print the bookmark URI for the target and exit")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("gomosh %s\n", version)
		return nil
	}

	if timeoutSec > 0 {
		cfg.ConnectTimeout = time.Duration(timeoutSec) * time.Second
	}
	if portSpec != "" {
		pr, err := config.ParseUDPPortSpec(portSpec)
		if err != nil {
			return fmt.Errorf("ports: %w", err)
		}
		cfg.UDPPorts = pr
	}

	// ── positional target ────────────────────────────────────────
	if err := parseTarget(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// parseTarget resolves the single positional argument, falling back
// to a host spec supplied through the environment.
func parseTarget(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		if cfg.HostSpec == "" {
			return fmt.Errorf("target required (use [user@]host[:port], see --help)")
		}
	case 1:
		cfg.HostSpec = remaining[0]
	default:
		return fmt.Errorf("too many arguments: one [user@]host[:port] target expected")
	}

	user, host, port, err := config.ParseHostSpec(cfg.HostSpec)
	if err != nil {
		return err
	}
	if user != "" {
		cfg.User = user
	}
	if cfg.User == "" {
		cfg.User = os.Getenv("USER")
	}
	cfg.Host = host
	cfg.SSHPort = port
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gomosh – roaming-tolerant remote shell v%s

Connects over SSH, starts mosh-server on the far end, and hands the
session to a local mosh-client speaking UDP.

Usage:
  gomosh [options] [user@]host[:sshport]       Connect
  gomosh --bookmark [user@]host[:sshport]      Print a mosh:// bookmark URI

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  gomosh alice@shell.example.com               Connect as alice
  gomosh -p 60000:61000 shell.example.com      Pin the UDP port range
  gomosh -i ~/.ssh/id_ed25519 host:2222        Key file + alternate SSH port
  gomosh -n 203.0.113.9                        Literal IP, no DNS
  gomosh --bookmark alice@shell.example.com    Emit a bookmark URI
`)
}
