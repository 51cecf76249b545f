// Package logo implements the keyword heuristic that picks a site's logo image
// and the exact-URL presence test used while crawling.
package logo

import (
	"net/url"
	"strings"

	"github.com/Sriram-PR/logo-crawler/pkg/parse"
)

// DefaultKeyword is used when the caller supplies none
const DefaultKeyword = "logo"

// NormalizeKeyword trims and lowercases k, falling back to DefaultKeyword
func NormalizeKeyword(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return DefaultKeyword
	}
	return k
}

// Matches reports whether the keyword appears in the image's alt text,
// its space-joined class tokens or its id. Comparison is case-insensitive.
func Matches(img parse.Image, keyword string) bool {
	keyword = NormalizeKeyword(keyword)
	fields := [...]string{
		strings.ToLower(img.Alt),
		strings.ToLower(strings.Join(img.Classes, " ")),
		strings.ToLower(img.ID),
	}
	for _, f := range fields {
		if strings.Contains(f, keyword) {
			return true
		}
	}
	return false
}

// Locate returns the absolute URL of the first image in document order that Matches the keyword.
// Images without a src, or whose src cannot be resolved against base, are skipped.
// ("", false) means no logo was found; that is a normal result, not an error.
func Locate(doc *parse.Document, base *url.URL, keyword string) (string, bool) {
	for _, img := range doc.Images() {
		if !img.HasSrc || !Matches(img, keyword) {
			continue
		}
		resolved, err := parse.Resolve(base, img.Src)
		if err != nil {
			continue
		}
		return resolved.String(), true
	}
	return "", false
}

// PageContains reports whether any image on the page resolves, against the page's own URL,
// to exactly logoURL
func PageContains(doc *parse.Document, base *url.URL, logoURL string) bool {
	if logoURL == "" {
		return false
	}
	for _, img := range doc.Images() {
		if !img.HasSrc {
			continue
		}
		resolved, err := parse.Resolve(base, img.Src)
		if err != nil {
			continue
		}
		if resolved.String() == logoURL {
			return true
		}
	}
	return false
}
