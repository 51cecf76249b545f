package scope

import (
	"net/url"
	"strings"
)

// normalizeHost lowercases a host and drops surrounding whitespace and a trailing root dot
func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// InScope reports whether host is baseHost itself or one of its subdomains.
// The suffix match is anchored on a label boundary, so "example.com.evil.net"
// and "notexample.com" are both out of scope for "example.com".
func InScope(host, baseHost string) bool {
	host = normalizeHost(host)
	baseHost = normalizeHost(baseHost)
	if host == "" || baseHost == "" {
		return false
	}
	if host == baseHost {
		return true
	}
	return strings.HasSuffix(host, "."+baseHost)
}

// HostOf returns the lowercased hostname of rawURL without port, or "" if it cannot be parsed
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

// URLInScope is InScope applied to a parsed URL's hostname
func URLInScope(u *url.URL, baseHost string) bool {
	if u == nil {
		return false
	}
	return InScope(u.Hostname(), baseHost)
}
