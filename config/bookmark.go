package config

// bookmark.go - mosh:// bookmark URIs.
//
// A bookmark renders a connection target as
//
//	mosh://user@host[:port]/#original-input
//
// with the user, host, and fragment percent-encoded and the port
// omitted when it is the SSH default.  The fragment preserves the
// exact string the user typed so a round trip recovers it verbatim.

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CreateBookmark renders a host spec ("[user@]host[:port]") as a
// mosh:// URI.  IPv6 hosts keep their brackets inside the encoded
// authority.
func CreateBookmark(spec string) (string, error) {
	user, host, port, err := ParseHostSpec(spec)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("mosh://")
	if user != "" {
		b.WriteString(encodeComponent(user))
		b.WriteByte('@')
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	b.WriteString(encodeComponent(host))
	if port != DefaultSSHPort {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(port))
	}
	b.WriteString("/#")
	b.WriteString(encodeComponent(spec))
	return b.String(), nil
}

// ParseBookmark is the inverse of CreateBookmark.  When the URI
// carries a fragment it is authoritative (it holds the original
// input); otherwise the authority is decoded and re-parsed.
func ParseBookmark(uri string) (user, host string, port int, err error) {
	rest, ok := strings.CutPrefix(uri, "mosh://")
	if !ok {
		return "", "", 0, fmt.Errorf("not a mosh:// URI: %q", uri)
	}

	if _, frag, found := strings.Cut(rest, "#"); found && frag != "" {
		spec, err := url.PathUnescape(frag)
		if err != nil {
			return "", "", 0, fmt.Errorf("bad bookmark fragment: %w", err)
		}
		return ParseHostSpec(spec)
	}

	authority, _, _ := strings.Cut(rest, "/")
	spec, err := url.PathUnescape(authority)
	if err != nil {
		return "", "", 0, fmt.Errorf("bad bookmark authority: %w", err)
	}
	return ParseHostSpec(spec)
}

// encodeComponent percent-encodes every byte outside the RFC 3986
// unreserved set.  Neither url.PathEscape nor url.QueryEscape produces
// this: both leave sub-delimiters like ':' and '@' bare, and bookmarks
// need those encoded inside components.
func encodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '.' || c == '_' || c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
