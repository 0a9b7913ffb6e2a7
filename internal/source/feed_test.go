package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Show</title>
    <item>
      <title>Older Episode</title>
      <guid>guid-old</guid>
      <link>https://example.com/old</link>
      <pubDate>Mon, 02 Jan 2026 10:00:00 +0000</pubDate>
      <description>Nothing to see here.</description>
    </item>
    <item>
      <title>Newest Episode</title>
      <guid>guid-new</guid>
      <link>https://example.com/new</link>
      <pubDate>Mon, 09 Feb 2026 10:00:00 +0000</pubDate>
      <description>Book Recommendations: Educated by Tara Westover</description>
    </item>
    <item>
      <title>Middle Episode</title>
      <guid>guid-mid</guid>
      <link>https://example.com/mid</link>
      <pubDate>Mon, 19 Jan 2026 10:00:00 +0000</pubDate>
      <description>Chat only.</description>
    </item>
  </channel>
</rss>`

func newTestFeed(t *testing.T) (*FeedSource, *int32) {
	t.Helper()

	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	}))
	t.Cleanup(srv.Close)

	return NewFeedSource(srv.URL, 2*time.Second), &fetches
}

func TestFeedSource_ListRecentNewestFirst(t *testing.T) {
	src, _ := newTestFeed(t)

	ids, err := src.ListRecent(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"guid-new", "guid-mid", "guid-old"}, ids)
}

func TestFeedSource_ListRecentPaging(t *testing.T) {
	src, _ := newTestFeed(t)

	ids, err := src.ListRecent(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"guid-mid"}, ids)

	ids, err = src.ListRecent(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFeedSource_Fetch(t *testing.T) {
	src, _ := newTestFeed(t)

	ep, err := src.Fetch(context.Background(), "guid-new")
	require.NoError(t, err)
	assert.Equal(t, "Newest Episode", ep.Name)
	assert.Contains(t, ep.Description, "Educated by Tara Westover")
	assert.Equal(t, "2026-02-09", ep.ReleaseDate)
	assert.Equal(t, "https://example.com/new", ep.URL)
	assert.False(t, ep.RetrievedAt.IsZero())
}

func TestFeedSource_FetchNotFound(t *testing.T) {
	src, _ := newTestFeed(t)

	_, err := src.Fetch(context.Background(), "guid-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFeedSource_CachesFeed(t *testing.T) {
	src, fetches := newTestFeed(t)

	_, err := src.ListRecent(context.Background(), 0, 10)
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), "guid-old")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(fetches))
}
