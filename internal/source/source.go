package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/readlist/readlist-cli/internal/model"
)

// ErrNotFound reports that a source has no episode with the requested id.
var ErrNotFound = eris.New("source: episode not found")

// Source supplies episodes to the extraction pipeline.
type Source interface {
	// Fetch returns one episode by id. Returns an error wrapping ErrNotFound
	// when the id is unknown.
	Fetch(ctx context.Context, id string) (*model.Episode, error)

	// ListRecent returns episode ids ordered newest first, paged by offset
	// and limit.
	ListRecent(ctx context.Context, offset, limit int) ([]string, error)
}
