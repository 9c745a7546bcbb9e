package dbpath

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Characters the store rejects inside a path segment.
const invalidKeyChars = ".#$[]"

// NicknameKey normalizes a display name into a store key: trims, strips
// diacritics, replaces invalid characters, dashes and whitespace with
// underscores, collapses underscore runs, lowercases, and drops trailing
// underscores. An empty result becomes "_" so the key is never an empty
// path segment. Deterministic: equal display names always map to the same key.
func NicknameKey(displayName string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(displayName))

	var b strings.Builder
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r): // combining mark left over from NFD
			continue
		case r == '-' || unicode.IsSpace(r) || strings.ContainsRune(invalidKeyChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	collapsed := collapseUnderscores(b.String())
	trimmed := strings.TrimRight(collapsed, "_")
	if trimmed == "" {
		return "_"
	}
	return trimmed
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	prev := false
	for _, r := range s {
		if r == '_' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
