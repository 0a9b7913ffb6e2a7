package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/readlist/readlist-cli/internal/config"
	"github.com/readlist/readlist-cli/internal/model"
)

// Store is the processing ledger: per-episode processing records plus the
// books extracted from accepted runs.
type Store interface {
	// Migrate creates or updates the schema. Idempotent.
	Migrate(ctx context.Context) error

	// UpsertRecord writes the record for an episode, overwriting any
	// previous record with the same episode id.
	UpsertRecord(ctx context.Context, rec model.ProcessingRecord) error

	// GetRecord returns the record for an episode, or nil when the episode
	// has never been processed.
	GetRecord(ctx context.Context, episodeID string) (*model.ProcessingRecord, error)

	// ListRecords returns ledger records, most recently processed first.
	ListRecords(ctx context.Context, limit, offset int) ([]model.ProcessingRecord, error)

	// ReplaceBooks atomically replaces the books for an episode.
	ReplaceBooks(ctx context.Context, episodeID string, books []model.Book) error

	// ListBooks returns books matching the filter.
	ListBooks(ctx context.Context, filter BookFilter) ([]model.Book, error)

	// Stats aggregates the ledger by status and parser.
	Stats(ctx context.Context) (*model.Stats, error)

	Close() error
}

// BookFilter narrows ListBooks results. Zero values mean no constraint;
// a zero Limit falls back to a server-side default.
type BookFilter struct {
	EpisodeID string
	Author    string
	Limit     int
	Offset    int
}

// Open constructs a Store from configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStore(ctx, cfg.DatabaseURL)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
