package source

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/readlist/readlist-cli/internal/model"
	"github.com/readlist/readlist-cli/pkg/spotify"
)

// SpotifySource adapts the Spotify Web API to the Source interface for a
// single show.
type SpotifySource struct {
	client spotify.Client
	showID string
}

// NewSpotifySource wraps a spotify client scoped to one show.
func NewSpotifySource(client spotify.Client, showID string) *SpotifySource {
	return &SpotifySource{client: client, showID: showID}
}

func (s *SpotifySource) Fetch(ctx context.Context, id string) (*model.Episode, error) {
	ep, err := s.client.GetEpisode(ctx, id)
	if err != nil {
		if errors.Is(err, spotify.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "spotify episode %s", id)
		}
		return nil, eris.Wrapf(err, "source: fetch episode %s", id)
	}
	return &model.Episode{
		ID:          ep.ID,
		Name:        ep.Name,
		Description: ep.Description,
		ReleaseDate: ep.ReleaseDate,
		URL:         ep.ExternalURL.Spotify,
		RetrievedAt: time.Now().UTC(),
	}, nil
}

func (s *SpotifySource) ListRecent(ctx context.Context, offset, limit int) ([]string, error) {
	eps, err := s.client.ListEpisodes(ctx, s.showID, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "source: list episodes")
	}
	ids := make([]string, 0, len(eps))
	for _, ep := range eps {
		ids = append(ids, ep.ID)
	}
	return ids, nil
}
