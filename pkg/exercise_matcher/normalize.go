package exercise_matcher

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a string before any comparison: lowercase,
// diacritics removed ("bíceps" == "biceps"), underscores and hyphens turned
// into spaces, whitespace collapsed and trimmed.
func Normalize(s string) string {
	s = strings.ToLower(s)

	// A fresh chain per call: transform.Chain keeps state and is not safe
	// for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}

	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// StripExtension removes the file extension from a media file name.
func StripExtension(fileName string) string {
	base := filepath.Base(fileName)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// tokens splits an already-normalized string into words.
func tokens(normalized string) []string {
	return strings.Fields(normalized)
}
