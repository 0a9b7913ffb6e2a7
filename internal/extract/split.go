package extract

import (
	"strings"
	"unicode"

	"github.com/readlist/readlist-cli/internal/model"
)

// DefaultNamePrefixes are surname particles and glue tokens that never end an
// author name on their own.
var DefaultNamePrefixes = []string{
	"mc", "mac", "o'", "st.",
	"van", "von", "de", "del", "der", "den", "di", "da", "la", "le",
}

var nameSuffixes = map[string]struct{}{
	"jr": {}, "jr.": {}, "sr": {}, "sr.": {},
	"ii": {}, "iii": {}, "iv": {},
}

// Splitter turns a recommendation section span into title/author candidates
// without any model involvement.
type Splitter struct {
	prefixes map[string]struct{}
}

// NewSplitter builds a Splitter. An empty prefix list falls back to
// DefaultNamePrefixes.
func NewSplitter(prefixes []string) *Splitter {
	if len(prefixes) == 0 {
		prefixes = DefaultNamePrefixes
	}
	set := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		set[strings.ToLower(p)] = struct{}{}
	}
	return &Splitter{prefixes: set}
}

// Split extracts candidates from a section span. Fragments separated by
// newlines or semicolons are parsed independently; fragments holding several
// run-together entries are re-segmented by author-name boundary detection.
// The splitter favors recall: a trailing title with no author becomes an
// incomplete candidate rather than being dropped.
func (sp *Splitter) Split(span string) []model.Candidate {
	span = sp.insertWordBoundaries(span)

	var out []model.Candidate
	seen := make(map[string]struct{})

	for _, frag := range splitFragments(span) {
		var cands []model.Candidate
		if strings.Count(frag, " by ") >= 2 {
			cands = sp.splitRunOn(frag)
		} else {
			cands = parseFragment(frag)
		}
		for _, c := range cands {
			if c.Title == "" || isJunk(c.Title, c.Author) {
				continue
			}
			key := strings.ToLower(c.Title) + "\x00" + strings.ToLower(c.Author)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// splitFragments breaks a span into entry fragments at newlines and semicolons.
func splitFragments(span string) []string {
	var frags []string
	for _, line := range strings.FieldsFunc(span, func(r rune) bool {
		return r == '\n' || r == ';'
	}) {
		line = strings.TrimSpace(line)
		if line != "" {
			frags = append(frags, line)
		}
	}
	return frags
}

// parseFragment handles a fragment holding at most one entry: either
// "Title by Author", "Title (Author)", or a bare title.
func parseFragment(frag string) []model.Candidate {
	raw := frag

	if idx := strings.Index(frag, " by "); idx != -1 {
		title := CleanTitle(frag[:idx])
		author := CleanAuthor(frag[idx+len(" by "):])
		return []model.Candidate{{Title: title, Author: author, RawFragment: raw}}
	}

	// "Title (Author)" form.
	if strings.HasSuffix(strings.TrimSpace(frag), ")") {
		if open := strings.LastIndex(frag, "("); open > 0 {
			inner := frag[open+1 : strings.LastIndex(frag, ")")]
			title := CleanTitle(frag[:open])
			if title != "" && inner != "" {
				return []model.Candidate{{Title: title, Author: CleanAuthor(inner), RawFragment: raw}}
			}
		}
	}

	title := CleanTitle(frag)
	if title == "" {
		return nil
	}
	return []model.Candidate{{Title: title, Author: "", RawFragment: raw}}
}

// splitRunOn re-segments a fragment that contains multiple " by " separators
// with no explicit entry boundary, as in
// "The Power Broker by Robert A. Caro Educated by Tara Westover".
// After each " by ", tokens are consumed into the author name (given name,
// then initials and surname particles, then one surname, then generational
// suffixes); whatever remains starts the next title.
func (sp *Splitter) splitRunOn(frag string) []model.Candidate {
	var out []model.Candidate
	s := frag

	for {
		idx := strings.Index(s, " by ")
		if idx == -1 {
			// Trailing text after the last author is a title with no author yet.
			if t := CleanTitle(s); t != "" {
				out = append(out, model.Candidate{Title: t, Author: "", RawFragment: frag})
			}
			return out
		}

		title := CleanTitle(s[:idx])
		rest := s[idx+len(" by "):]

		next := strings.Index(rest, " by ")
		if next == -1 {
			// Final segment: consume the author name, then keep whatever
			// trails it as a title-only candidate.
			segment := strings.Fields(rest)
			n := sp.consumeName(segment)
			if title != "" {
				out = append(out, model.Candidate{
					Title: title, Author: CleanAuthor(strings.Join(segment[:n], " ")), RawFragment: frag,
				})
			}
			if t := CleanTitle(strings.Join(segment[n:], " ")); t != "" {
				out = append(out, model.Candidate{Title: t, Author: "", RawFragment: frag})
			}
			return out
		}

		segment := strings.Fields(rest[:next])
		n := sp.consumeName(segment)
		author := strings.Join(segment[:n], " ")
		leftover := strings.Join(segment[n:], " ")

		if title != "" {
			out = append(out, model.Candidate{Title: title, Author: CleanAuthor(author), RawFragment: frag})
		}
		s = leftover + rest[next:]
	}
}

// consumeName returns how many leading tokens of segment belong to an author
// name: a given name, any run of initials ("A.") and surname particles
// ("van", "de", "mc"), one surname, and any generational suffixes.
func (sp *Splitter) consumeName(segment []string) int {
	if len(segment) == 0 {
		return 0
	}
	i := 1 // given name

	for i < len(segment) && (isInitial(segment[i]) || sp.isPrefix(segment[i])) {
		i++
	}
	if i < len(segment) {
		i++ // surname
	}
	for i < len(segment) && isSuffix(segment[i]) {
		i++
	}
	return i
}

func isInitial(tok string) bool {
	r := []rune(tok)
	switch len(r) {
	case 1:
		return unicode.IsUpper(r[0])
	case 2:
		return unicode.IsUpper(r[0]) && r[1] == '.'
	default:
		return false
	}
}

func (sp *Splitter) isPrefix(tok string) bool {
	_, ok := sp.prefixes[strings.ToLower(tok)]
	return ok
}

func isSuffix(tok string) bool {
	_, ok := nameSuffixes[strings.ToLower(tok)]
	return ok
}

// insertWordBoundaries breaks run-together entries with no separating space,
// as in "...CaroEducated by...". A lowercase-to-uppercase transition inside a
// word starts a new entry unless the letters before it form a surname particle
// like "Mc" or "De" that legitimately glues to a capital.
func (sp *Splitter) insertWordBoundaries(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	wordStart := 0 // index into runes of the current word's first letter
	for i, r := range runes {
		if !unicode.IsLetter(r) && r != '\'' {
			b.WriteRune(r)
			wordStart = i + 1
			continue
		}
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			head := strings.ToLower(string(runes[wordStart:i]))
			if _, glue := sp.prefixes[head]; !glue {
				b.WriteRune('\n')
				wordStart = i
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
