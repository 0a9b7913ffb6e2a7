package model

import "time"

// RecordStatus is the terminal status of one processing attempt.
type RecordStatus string

const (
	StatusSuccess      RecordStatus = "success"
	StatusNoBooksFound RecordStatus = "no_books_found"
	StatusFailed       RecordStatus = "failed"
)

// ProcessingRecord is the durable audit trail for one episode. The store
// keeps at most one record per episode id; reprocessing overwrites.
type ProcessingRecord struct {
	EpisodeID    string       `json:"episode_id"`
	EpisodeTitle string       `json:"episode_title,omitempty"`
	Status       RecordStatus `json:"status"`
	Parser       Parser       `json:"parser"`
	BookCount    int          `json:"book_count"`
	Confidence   float64      `json:"confidence"`
	ErrorDetail  string       `json:"error_detail,omitempty"`
	ProcessedAt  time.Time    `json:"processed_at"`
}

// Stats aggregates ledger records by status and parser.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByParser   map[string]int `json:"by_parser"`
	TotalBooks int            `json:"total_books"`
}
