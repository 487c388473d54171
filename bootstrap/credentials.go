// Package bootstrap turns an authenticated reliable transport into
// UDP connection credentials: it starts the remote helper over an
// exec channel, scans the helper's cumulative output for the connect
// line on a fixed cadence, and hands the parsed (port, key) pair to
// the native session spawner.
package bootstrap

import (
	"regexp"
	"strconv"

	"gomosh/internal/errors"
)

// connectLine matches the helper's credential announcement anywhere
// in its output: "MOSH CONNECT <port> <key>" where port is decimal
// digits and key is one non-whitespace token.
var connectLine = regexp.MustCompile(`MOSH CONNECT (\d+) (\S+)`)

// Credentials address and authenticate the helper's UDP endpoint.
// A value is produced at most once per connection attempt, consumed
// exactly once by the native session spawner, and never persisted.
type Credentials struct {
	Host string // target host, resolved separately from the parse
	Port string // UDP port the helper bound
	Key  string // MOSH_KEY for the datagram protocol
}

// ParseCredentials scans the cumulative helper output for the first
// connect line. The scan always runs over everything captured so far,
// so chunking of the underlying reads is invisible: a line split
// across two reads simply matches once the second half has arrived.
// found is false while the marker has not appeared yet; during
// polling that is the normal outcome, not an error. When the marker
// appears more than once the first occurrence wins.
func ParseCredentials(output []byte) (port, key string, found bool) {
	m := connectLine.FindSubmatch(output)
	if m == nil {
		return "", "", false
	}
	return string(m[1]), string(m[2]), true
}

// Validate checks that the credentials can actually address a helper
// endpoint. Failures carry hints in the same shape as the config
// validator.
func (c Credentials) Validate() error {
	if c.Host == "" {
		return &errors.ConfigError{
			Field:   "host",
			Message: "credentials have no target host",
		}
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "helper reported an unusable UDP port",
			Hint:    "expected a decimal port between 1 and 65535",
		}
	}
	if c.Key == "" {
		return &errors.ConfigError{
			Field:   "key",
			Message: "helper reported an empty session key",
		}
	}
	return nil
}
