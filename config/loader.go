package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOMOSH_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GOMOSH_HOST"); v != "" {
		cfg.HostSpec = v
	}
	if v := os.Getenv("GOMOSH_PORTS"); v != "" {
		if pr, err := ParseUDPPortSpec(v); err == nil {
			cfg.UDPPorts = pr
		}
	}
	if v := os.Getenv("GOMOSH_SERVER"); v != "" {
		cfg.ServerBinary = v
	}
	if v := os.Getenv("GOMOSH_CLIENT"); v != "" {
		cfg.ClientBinary = v
	}
	if v := os.Getenv("GOMOSH_LOCALE"); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv("GOMOSH_TERM"); v != "" {
		cfg.Term = v
	}
	if v := os.Getenv("GOMOSH_TERMINFO"); v != "" {
		cfg.TerminfoPath = v
	}
	if v := os.Getenv("GOMOSH_TERMINFO_SRC"); v != "" {
		cfg.TerminfoSrc = v
	}

	// SSH auth
	if v := os.Getenv("GOMOSH_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("GOMOSH_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("GOMOSH_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("GOMOSH_KBD_INTERACTIVE") {
		cfg.KeyboardInteractive = true
	}
	if envBool("GOMOSH_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("GOMOSH_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Behavior
	if envBool("GOMOSH_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := envInt("GOMOSH_TIMEOUT"); v > 0 {
		cfg.ConnectTimeout = secondsDuration(v)
	}
	if v := envInt("GOMOSH_INSTALL_TIMEOUT"); v > 0 {
		cfg.InstallTimeout = secondsDuration(v)
	}

	// Output
	if v := envInt("GOMOSH_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
