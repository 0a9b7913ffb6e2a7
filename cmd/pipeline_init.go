package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/readlist/readlist-cli/internal/extract"
	"github.com/readlist/readlist-cli/internal/source"
	"github.com/readlist/readlist-cli/internal/store"
	anthropicpkg "github.com/readlist/readlist-cli/pkg/anthropic"
	"github.com/readlist/readlist-cli/pkg/spotify"
)

// pipelineEnv holds the initialized store, episode source, and coordinator
// shared by the process/batch/serve commands.
type pipelineEnv struct {
	Store       store.Store
	Source      source.Source
	Coordinator *extract.Coordinator
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates configuration, opens the ledger, picks the episode
// source, and wires the extraction coordinator. Callers should defer
// env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	src := initSource()

	fallback := extract.NewModelParser(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second,
	)

	policy := extract.Policy{
		MinCandidates:   cfg.Parser.MinCandidates,
		AcceptThreshold: cfg.Parser.AcceptThreshold,
		LowCountPenalty: cfg.Parser.LowCountPenalty,
		MaxFieldLen:     cfg.Parser.MaxFieldLen,
	}

	coord := extract.NewCoordinator(
		extract.NewLocator(),
		extract.NewSplitter(cfg.Parser.NamePrefixes),
		policy,
		fallback,
		st,
	)

	return &pipelineEnv{Store: st, Source: src, Coordinator: coord}, nil
}

// initSource prefers the Spotify API when credentials are configured and
// falls back to the RSS feed otherwise. Validate has already ensured one of
// the two is available.
func initSource() source.Source {
	if cfg.Spotify.ClientID != "" {
		zap.L().Debug("using spotify episode source", zap.String("show_id", cfg.Spotify.ShowID))
		client := spotify.NewClient(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, spotify.Options{
			Timeout:        time.Duration(cfg.Spotify.TimeoutSecs) * time.Second,
			RequestsPerSec: cfg.Spotify.RequestsPerSec,
		})
		return source.NewSpotifySource(client, cfg.Spotify.ShowID)
	}

	zap.L().Debug("using rss feed episode source", zap.String("url", cfg.Feed.URL))
	return source.NewFeedSource(cfg.Feed.URL, time.Duration(cfg.Feed.TimeoutSecs)*time.Second)
}
