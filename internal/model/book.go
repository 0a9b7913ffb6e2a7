package model

// Parser identifies which parsing path produced a result.
type Parser string

const (
	ParserManual Parser = "manual"
	ParserModel  Parser = "model"
	ParserNone   Parser = "none"
)

// Candidate is a tentative (title, author) pair extracted from a
// recommendation span. RawFragment retains the original un-split text for
// auditing. A candidate with an empty title is never emitted; an empty
// author is allowed and acts as an escalation signal.
type Candidate struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	RawFragment string `json:"raw_fragment,omitempty"`
}

// Complete reports whether both title and author survived normalization.
func (c Candidate) Complete() bool {
	return c.Title != "" && c.Author != ""
}

// ExtractionResult is the canonical outcome of one extraction attempt for
// one episode.
type ExtractionResult struct {
	EpisodeID  string      `json:"episode_id"`
	Candidates []Candidate `json:"candidates"`
	Parser     Parser      `json:"parser"`
	Confidence float64     `json:"confidence"`
	BookCount  int         `json:"book_count"`
}

// Book is a durable book row derived from an accepted candidate, keyed by
// (episode_id, title, author) in the store.
type Book struct {
	ID           string `json:"id"`
	EpisodeID    string `json:"episode_id"`
	EpisodeTitle string `json:"episode_title,omitempty"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	SourceURL    string `json:"source_url,omitempty"`
}
