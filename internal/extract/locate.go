package extract

import (
	"regexp"
	"strings"

	"github.com/readlist/readlist-cli/internal/model"
)

// headerPattern pairs a recognized section header phrase with its variant.
// Patterns are ordered by priority; longer phrases come first so that
// "book recommendations" wins over the bare "recommendations" it contains.
type headerPattern struct {
	phrase  string
	variant model.HeaderVariant
}

var defaultHeaders = []headerPattern{
	{"book recommendations", model.HeaderBookRecommendations},
	{"recommendations", model.HeaderRecommendations},
	{"recommendation", model.HeaderRecommendation},
}

// defaultEndMarkers terminate a recommendation section. Show notes append
// boilerplate (credits, subscription plugs) directly after the list.
var defaultEndMarkers = []string{
	"thoughts? guest suggestions?",
	"you can find the transcript",
	"you can find transcripts",
	"this episode of",
	"special thanks to",
	"unlock full access",
	"email us at",
	"book recommendations from all our guests",
}

// blankLine matches two-or-more consecutive newlines, allowing interior
// horizontal whitespace.
var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Locator finds the recommendation section inside episode show notes.
type Locator struct {
	headers    []headerPattern
	endMarkers []string
}

// NewLocator returns a Locator with the default header set and end markers.
func NewLocator() *Locator {
	return &Locator{headers: defaultHeaders, endMarkers: defaultEndMarkers}
}

// Locate returns the span of text believed to contain book recommendations.
// The earliest occurrence of any recognized header wins; ties at the same
// offset resolve by pattern priority. Absence of a header is a normal
// outcome, reported as ok=false.
func (l *Locator) Locate(text string) (model.Span, bool) {
	lower := strings.ToLower(text)

	bestPos := -1
	var best headerPattern
	for _, h := range l.headers {
		pos := strings.Index(lower, h.phrase)
		if pos == -1 {
			continue
		}
		if bestPos == -1 || pos < bestPos {
			bestPos = pos
			best = h
		}
	}
	if bestPos == -1 {
		return model.Span{}, false
	}

	// Content starts after the header, an optional colon, and whitespace.
	start := bestPos + len(best.phrase)
	for start < len(text) && (text[start] == ':' || text[start] == ' ' || text[start] == '\t') {
		start++
	}
	for start < len(text) && text[start] == '\n' {
		start++
	}

	end := len(text)

	// Next recognized header ends the span.
	rest := lower[start:]
	for _, h := range l.headers {
		if pos := strings.Index(rest, h.phrase); pos != -1 && start+pos < end {
			end = start + pos
		}
	}

	// So does a blank-line boundary.
	if loc := blankLine.FindStringIndex(text[start:]); loc != nil && start+loc[0] < end {
		end = start + loc[0]
	}

	// And any recognized end marker.
	for _, m := range l.endMarkers {
		if pos := strings.Index(rest, m); pos != -1 && start+pos < end {
			end = start + pos
		}
	}

	if start >= end {
		return model.Span{}, false
	}

	return model.Span{Start: start, End: end, Header: best.variant}, true
}
