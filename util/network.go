package util

import (
	"fmt"
	"net"
	"strconv"
)

// ResolveAddr builds a host:port string, validating that the host is a
// numeric IP when noDNS is true.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if noDNS {
		if net.ParseIP(host) == nil {
			return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// LookupHost resolves a hostname.  With noDNS it only accepts numeric IPs.
func LookupHost(host string, noDNS bool) ([]string, error) {
	if noDNS {
		if net.ParseIP(host) == nil {
			return nil, fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
		}
		return []string{host}, nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup for %q: %w", host, err)
	}
	return addrs, nil
}

// ResolveIP pins host to a single literal address.  The native client
// cannot re-resolve once launched, so the choice is made here: the
// first resolved address wins.
func ResolveIP(host string, noDNS bool) (string, error) {
	addrs, err := LookupHost(host, noDNS)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses found for %q", host)
	}
	return addrs[0], nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
