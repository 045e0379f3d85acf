package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// junkPatterns match vote widgets, social-share strips and spam-report
// labels that MyGov renders inside comment markup.
var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^like\s*\(\d+\)\s*dislike\s*\(\d+\)`),
	regexp.MustCompile(`(?i)facebook\s+twitter`),
	regexp.MustCompile(`(?i)^report\s+spam`),
}

// placeholderAuthors are display names the site substitutes when the
// real author is missing.
var placeholderAuthors = map[string]struct{}{
	"":                      {},
	"unknown":               {},
	"default icon for user": {},
	"home":                  {},
	"user":                  {},
}

const minCommentLength = 3

// Whitespace collapses all whitespace runs to single spaces and trims.
func Whitespace(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}

// RepairMojibake re-decodes text that was mis-read as Latin-1 somewhere
// upstream. The tell-tale artifacts are "Ã", "Â" and "â" sequences.
// When the re-decode fails the normalized input is returned as is.
func RepairMojibake(s string) string {
	cleaned := Whitespace(s)
	if cleaned == "" {
		return ""
	}
	if !strings.ContainsAny(cleaned, "ÃÂâ") {
		return cleaned
	}

	// Undo a UTF-8-as-Latin-1 round trip: re-encode each rune to its
	// Latin-1 byte and reinterpret the result as UTF-8.
	raw, err := charmap.ISO8859_1.NewEncoder().String(cleaned)
	if err != nil || !utf8.ValidString(raw) {
		return cleaned
	}
	return Whitespace(raw)
}

// IsJunkOrBoilerplate reports whether the text carries no comment
// content: empty, below the minimum length, or matching a known
// boilerplate pattern. Applied at extraction time and again on every
// corpus load so stored rows self-heal when the pattern set changes.
func IsJunkOrBoilerplate(s string) bool {
	cleaned := Whitespace(s)
	if cleaned == "" {
		return true
	}
	if len([]rune(cleaned)) < minCommentLength {
		return true
	}
	for _, pattern := range junkPatterns {
		if pattern.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// IsPlaceholderAuthor reports whether the author name is one of the
// site's stand-in values rather than a real display name.
func IsPlaceholderAuthor(s string) bool {
	cleaned := strings.ToLower(Whitespace(s))
	_, ok := placeholderAuthors[cleaned]
	return ok
}
