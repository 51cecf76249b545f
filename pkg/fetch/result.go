package fetch

import (
	"net/url"
	"strings"
)

// Result is the outcome of one page fetch: either a body or a cause, never both
type Result struct {
	RequestURL *url.URL
	FinalURL   *url.URL // After redirects; nil when no response was received
	StatusCode int      // 0 when the failure happened before any HTTP response
	Body       []byte
	Err        error
}

// OK reports whether the fetch produced a usable body
func (r Result) OK() bool {
	return r.Err == nil
}

// BaseURL returns the URL relative references on the page resolve against
func (r Result) BaseURL() *url.URL {
	if r.FinalURL != nil {
		return r.FinalURL
	}
	return r.RequestURL
}

func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
