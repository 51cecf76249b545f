package parse

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// Resolve turns ref into an absolute URL using base (RFC 3986 reference resolution)
// Absolute references pass through unchanged
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	ref = strings.TrimSpace(ref)
	if base == nil {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: URL %q: %w", utils.ErrParsing, ref, err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("%w: URL %q is relative and no base was given", utils.ErrParsing, ref)
		}
		return u, nil
	}
	u, err := base.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: URL %q against %s: %w", utils.ErrParsing, ref, base, err)
	}
	return u, nil
}

// StripFragment returns u as a string without its #fragment
// Does not modify the input *url.URL
func StripFragment(u *url.URL) string {
	if u == nil {
		return ""
	}
	stripped := *u
	stripped.Fragment = ""
	stripped.RawFragment = ""
	return stripped.String()
}

// IsHTTP reports whether u uses the http or https scheme
func IsHTTP(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// ValidateStartURL parses a crawl start URL using the stricter url.ParseRequestURI
// It must be absolute, use http(s) and carry a host
func ValidateStartURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: start URL is empty", utils.ErrInvalidInput)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: start URL %q: %v", utils.ErrInvalidInput, raw, err)
	}
	if !IsHTTP(u) {
		return nil, fmt.Errorf("%w: start URL %q must use http or https", utils.ErrInvalidInput, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: start URL %q has no host", utils.ErrInvalidInput, raw)
	}
	return u, nil
}
