package utils

import (
	"strings"
	"unicode/utf8"
)

const maxFilenameBytes = 100

// SanitizeFilename turns name into a single safe path component: reserved and control
// characters become '_', runs of '_' collapse, and the result is capped at 100 bytes
// without splitting a rune. An empty result becomes "untitled".
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "_ ")
	if len(out) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.Trim(out[:cut], "_ ")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
