package model

import "time"

// Episode is one unit of podcast content with its free-text show notes.
// The description is immutable once fetched; the pipeline only reads it.
type Episode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ReleaseDate string    `json:"release_date,omitempty"`
	URL         string    `json:"url,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// HeaderVariant identifies which header phrase matched when locating the
// recommendation section.
type HeaderVariant string

const (
	HeaderBookRecommendations HeaderVariant = "book_recommendations"
	HeaderRecommendations     HeaderVariant = "recommendations"
	HeaderRecommendation      HeaderVariant = "recommendation"
)

// Span is a located sub-range of an episode description believed to contain
// book recommendations. Derived per extraction call, never persisted.
type Span struct {
	Start  int           `json:"start"`
	End    int           `json:"end"`
	Header HeaderVariant `json:"header"`
}
