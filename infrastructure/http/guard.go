package http

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrBlockedAddress is returned when a dial targets a non-public address.
var ErrBlockedAddress = errors.New("blocked address")

// blockedHostnames are resolved to internal services on common platforms.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata":                 true,
	"metadata.google.internal": true,
	"169.254.169.254":          true,
}

// IsPrivateIP reports whether ip is loopback, private, link-local or
// unspecified. A nil IP is not private.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsUnspecified()
}

// IsBlockedHost reports whether host names an internal destination: a
// blocked hostname, a subdomain of localhost, or a literal private IP.
func IsBlockedHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	if blockedHostnames[host] || strings.HasSuffix(host, ".localhost") {
		return true
	}
	return IsPrivateIP(net.ParseIP(host))
}

// publicOnly is a net.Dialer Control hook. It runs after DNS resolution, so
// it also covers redirects and hostnames that resolve to internal addresses.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if IsPrivateIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}
