package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	leadMarker   = regexp.MustCompile(`^\s*(?:[-–—•*·]+|\d+[.)])\s*`)
	trailPunct   = regexp.MustCompile(`[\s,;:]+$`)
	quotePairs   = [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}, {"‘", "’"}, {"«", "»"}}
	junkPhrases  = []string{
		"email us at",
		"subscribe today",
		"unlock full access",
		"guest suggestions",
		"nytimes.com",
		"spotify.com",
		"apple.com",
	}
)

// Normalize applies NFC normalization and strips carriage returns so that
// offsets and case-insensitive matching behave uniformly downstream.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// CleanTitle strips leading list markers, collapses interior whitespace, and
// removes symmetric outer quotes. Interior quotes and unbalanced quotes are
// preserved.
func CleanTitle(s string) string {
	s = leadMarker.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = trailPunct.ReplaceAllString(s, "")

	for _, q := range quotePairs {
		if strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) && len(s) > len(q[0])+len(q[1]) {
			s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
			break
		}
	}
	return s
}

// CleanAuthor normalizes an author string: whitespace collapse, trailing
// punctuation strip, symmetric quote removal.
func CleanAuthor(s string) string {
	return CleanTitle(s)
}

// isJunk reports whether a candidate is boilerplate that leaked into the
// section span rather than an actual recommendation.
func isJunk(title, author string) bool {
	t := strings.ToLower(title + " " + author)
	for _, p := range junkPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
