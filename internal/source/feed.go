package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/readlist/readlist-cli/internal/model"
)

// feedCacheTTL bounds how stale a cached feed may be before refetching.
const feedCacheTTL = 5 * time.Minute

// FeedSource serves episodes from a podcast RSS feed. It is the fallback
// source when no Spotify credentials are configured.
type FeedSource struct {
	parser  *gofeed.Parser
	url     string
	timeout time.Duration

	mu        sync.Mutex
	items     []*gofeed.Item
	fetchedAt time.Time
}

// NewFeedSource builds a FeedSource for the given feed URL.
func NewFeedSource(url string, timeout time.Duration) *FeedSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedSource{
		parser:  gofeed.NewParser(),
		url:     url,
		timeout: timeout,
	}
}

func (f *FeedSource) Fetch(ctx context.Context, id string) (*model.Episode, error) {
	items, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if itemID(it) == id {
			return itemToEpisode(it), nil
		}
	}
	return nil, eris.Wrapf(ErrNotFound, "feed item %s", id)
}

func (f *FeedSource) ListRecent(ctx context.Context, offset, limit int) ([]string, error) {
	items, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(items) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	ids := make([]string, 0, end-offset)
	for _, it := range items[offset:end] {
		ids = append(ids, itemID(it))
	}
	return ids, nil
}

// load returns the cached feed items, refetching once the cache expires.
// Items are ordered newest first.
func (f *FeedSource) load(ctx context.Context) ([]*gofeed.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.items != nil && time.Since(f.fetchedAt) < feedCacheTTL {
		return f.items, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "source: parse feed %s", f.url)
	}

	items := feed.Items
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := itemTime(items[i]), itemTime(items[j])
		return ti.After(tj)
	})

	f.items = items
	f.fetchedAt = time.Now()
	return f.items, nil
}

func itemID(it *gofeed.Item) string {
	if it.GUID != "" {
		return it.GUID
	}
	return it.Link
}

func itemTime(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return time.Time{}
}

func itemToEpisode(it *gofeed.Item) *model.Episode {
	desc := it.Description
	if it.Content != "" {
		desc = it.Content
	}
	release := ""
	if t := itemTime(it); !t.IsZero() {
		release = t.Format("2006-01-02")
	}
	return &model.Episode{
		ID:          itemID(it),
		Name:        it.Title,
		Description: desc,
		ReleaseDate: release,
		URL:         it.Link,
		RetrievedAt: time.Now().UTC(),
	}
}
