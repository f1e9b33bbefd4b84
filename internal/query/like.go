package query

import (
	"regexp"
	"strings"
)

// ContainsPattern wraps part into LIKE pattern matching any text containing it
func ContainsPattern(part string) string {
	return "%" + part + "%"
}

// LikeToRegexp translates LIKE pattern without escape character into anchored
// regular expression: % matches any run of characters, _ matches exactly one.
func LikeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// CompileLike builds case-insensitive matcher for LIKE pattern
func CompileLike(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?is)" + LikeToRegexp(pattern))
}

// MatchLike reports whether value matches LIKE pattern ignoring case
func MatchLike(value, pattern string) bool {
	re, err := CompileLike(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}
