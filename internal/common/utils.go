package common

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FirstJSONObject returns the substring from the first '{' to its matching
// '}'. Braces inside JSON strings are ignored. ok is false when there is no
// balanced object.
func FirstJSONObject(s string) (obj string, ok bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// TitleWords upper-cases the first letter of each word and collapses
// surrounding whitespace. The rest of each word is left untouched.
func TitleWords(s string) string {
	// Casers are stateful, so one per call.
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(strings.Fields(s), " "))
}
