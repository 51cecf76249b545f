package parse

import (
	"errors"
	"net/url"
	"testing"

	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		ref      string
		expected string
	}{
		{"RootRelative", "https://x.com/about", "/img/logo.png", "https://x.com/img/logo.png"},
		{"PathRelative", "https://x.com/docs/page", "logo.png", "https://x.com/docs/logo.png"},
		{"ParentRelative", "https://x.com/a/b/c", "../l.png", "https://x.com/a/l.png"},
		{"Absolute", "https://x.com/about", "https://cdn.y.com/l.png", "https://cdn.y.com/l.png"},
		{"ProtocolRelative", "https://x.com/", "//cdn.x.com/l.png", "https://cdn.x.com/l.png"},
		{"QueryKept", "https://x.com/", "/l.png?v=2", "https://x.com/l.png?v=2"},
		{"WhitespaceTrimmed", "https://x.com/", "  /l.png\n", "https://x.com/l.png"},
		{"EmptyRefIsBase", "https://x.com/about", "", "https://x.com/about"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(mustParse(t, tt.base), tt.ref)
			if err != nil {
				t.Fatalf("Resolve(%q, %q) error = %v", tt.base, tt.ref, err)
			}
			if got.String() != tt.expected {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got.String(), tt.expected)
			}
		})
	}
}

func TestResolve_InvalidRef(t *testing.T) {
	_, err := Resolve(mustParse(t, "https://x.com/"), "http://[::1")
	if err == nil {
		t.Fatal("Resolve() expected error for malformed reference, got nil")
	}
	if !errors.Is(err, utils.ErrParsing) {
		t.Errorf("Resolve() error = %v, want wrapped ErrParsing", err)
	}
}

func TestResolve_NilBase(t *testing.T) {
	got, err := Resolve(nil, "https://x.com/l.png")
	if err != nil {
		t.Fatalf("Resolve(nil, absolute) error = %v", err)
	}
	if got.String() != "https://x.com/l.png" {
		t.Errorf("Resolve(nil, absolute) = %q", got.String())
	}

	if _, err := Resolve(nil, "/l.png"); err == nil {
		t.Error("Resolve(nil, relative) expected error, got nil")
	}
}

func TestStripFragment(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://x.com/a#section", "https://x.com/a"},
		{"https://x.com/a?q=1#frag", "https://x.com/a?q=1"},
		{"https://x.com/a", "https://x.com/a"},
		{"https://x.com/#", "https://x.com/"},
	}
	for _, tt := range tests {
		u := mustParse(t, tt.input)
		if got := StripFragment(u); got != tt.expected {
			t.Errorf("StripFragment(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
	u := mustParse(t, "https://x.com/a#keep")
	_ = StripFragment(u)
	if u.Fragment != "keep" {
		t.Errorf("StripFragment() modified its input: fragment = %q", u.Fragment)
	}
	if got := StripFragment(nil); got != "" {
		t.Errorf("StripFragment(nil) = %q, want empty", got)
	}
}

func TestIsHTTP(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"http://x.com", true},
		{"HTTPS://x.com", true},
		{"mailto:a@x.com", false},
		{"javascript:void(0)", false},
		{"ftp://x.com/f", false},
	}
	for _, tt := range tests {
		if got := IsHTTP(mustParse(t, tt.input)); got != tt.expected {
			t.Errorf("IsHTTP(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestValidateStartURL(t *testing.T) {
	valid := []string{
		"https://site.test/",
		"http://127.0.0.1:8080/index.html",
		"  https://site.test/about  ",
	}
	for _, raw := range valid {
		if _, err := ValidateStartURL(raw); err != nil {
			t.Errorf("ValidateStartURL(%q) unexpected error: %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"site.test",
		"/relative/path",
		"ftp://site.test/",
		"https://",
		"http:///nohost",
		"not a url",
	}
	for _, raw := range invalid {
		_, err := ValidateStartURL(raw)
		if err == nil {
			t.Errorf("ValidateStartURL(%q) expected error, got nil", raw)
			continue
		}
		if !errors.Is(err, utils.ErrInvalidInput) {
			t.Errorf("ValidateStartURL(%q) error = %v, want wrapped ErrInvalidInput", raw, err)
		}
	}
}
