package store

import (
	"fmt"
	"regexp"
	"strings"
)

// translateWildcards converts caller-supplied glob wildcards ('*' -> any
// run of characters, '?' -> any single character) into their regex
// equivalents, escaping any other regex metacharacter in the input so a
// literal caller pattern like "a.b" matches only that literal string
// unless the caller deliberately supplies wildcards.
func translateWildcards(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// fieldPattern builds the substring-regex pattern used to match a single
// "field": "value" clause inside a JSON-serialized blob, mirroring the
// original implementation's literal f'"{k}"\\s*:\\s*"[^"]*{regex}[^"]*"'.
func fieldPattern(field, regex string) string {
	return fmt.Sprintf(`"%s"\s*:\s*"[^"]*%s[^"]*"`, regexp.QuoteMeta(field), translateWildcards(regex))
}

// matchesAll reports whether every (field, regex) clause in query matches
// somewhere in blob (a JSON-serialized props map). An absent key fails
// the match, since the pattern requires the literal quoted field name to
// be present in blob.
func matchesAll(blob string, query map[string]string) bool {
	for field, regex := range query {
		re, err := regexp.Compile(fieldPattern(field, regex))
		if err != nil {
			return false
		}
		if !re.MatchString(blob) {
			return false
		}
	}
	return true
}
