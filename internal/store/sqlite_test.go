package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readlist/readlist-cli/internal/config"
	"github.com/readlist/readlist-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	st, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(ctx))
	return st
}

func testRecord(id string, status model.RecordStatus) model.ProcessingRecord {
	return model.ProcessingRecord{
		EpisodeID:    id,
		EpisodeTitle: "Episode " + id,
		Status:       status,
		Parser:       model.ParserManual,
		BookCount:    3,
		Confidence:   0.8,
		ProcessedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_GetRecordAbsent(t *testing.T) {
	st := newTestStore(t)

	rec, err := st.GetRecord(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertRecord(ctx, testRecord("ep1", model.StatusFailed)))

	rec2 := testRecord("ep1", model.StatusSuccess)
	rec2.Parser = model.ParserModel
	rec2.BookCount = 7
	require.NoError(t, st.UpsertRecord(ctx, rec2))

	got, err := st.GetRecord(ctx, "ep1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.Equal(t, model.ParserModel, got.Parser)
	assert.Equal(t, 7, got.BookCount)

	// Still exactly one row for the episode.
	recs, err := st.ListRecords(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSQLiteStore_ReplaceBooks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := []model.Book{
		{EpisodeID: "ep1", Title: "Educated", Author: "Tara Westover"},
		{EpisodeID: "ep1", Title: "Circe", Author: "Madeline Miller"},
	}
	require.NoError(t, st.ReplaceBooks(ctx, "ep1", first))

	second := []model.Book{
		{EpisodeID: "ep1", Title: "Wolf Hall", Author: "Hilary Mantel"},
	}
	require.NoError(t, st.ReplaceBooks(ctx, "ep1", second))

	books, err := st.ListBooks(ctx, BookFilter{EpisodeID: "ep1"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Wolf Hall", books[0].Title)
	assert.NotEmpty(t, books[0].ID)
}

func TestSQLiteStore_ListBooksFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.ReplaceBooks(ctx, "ep1", []model.Book{
		{EpisodeID: "ep1", Title: "Educated", Author: "Tara Westover"},
	}))
	require.NoError(t, st.ReplaceBooks(ctx, "ep2", []model.Book{
		{EpisodeID: "ep2", Title: "Circe", Author: "Madeline Miller"},
		{EpisodeID: "ep2", Title: "Wolf Hall", Author: "Hilary Mantel"},
	}))

	all, err := st.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byEpisode, err := st.ListBooks(ctx, BookFilter{EpisodeID: "ep2"})
	require.NoError(t, err)
	assert.Len(t, byEpisode, 2)

	byAuthor, err := st.ListBooks(ctx, BookFilter{Author: "mantel"})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Wolf Hall", byAuthor[0].Title)

	paged, err := st.ListBooks(ctx, BookFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestSQLiteStore_Stats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertRecord(ctx, testRecord("ep1", model.StatusSuccess)))
	require.NoError(t, st.UpsertRecord(ctx, testRecord("ep2", model.StatusSuccess)))
	require.NoError(t, st.UpsertRecord(ctx, testRecord("ep3", model.StatusNoBooksFound)))

	rec := testRecord("ep4", model.StatusFailed)
	rec.Parser = model.ParserModel
	require.NoError(t, st.UpsertRecord(ctx, rec))

	require.NoError(t, st.ReplaceBooks(ctx, "ep1", []model.Book{
		{EpisodeID: "ep1", Title: "Educated", Author: "Tara Westover"},
	}))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["success"])
	assert.Equal(t, 1, stats.ByStatus["no_books_found"])
	assert.Equal(t, 1, stats.ByStatus["failed"])
	assert.Equal(t, 3, stats.ByParser["manual"])
	assert.Equal(t, 1, stats.ByParser["model"])
	assert.Equal(t, 1, stats.TotalBooks)
}

func TestSQLiteStore_ListRecordsOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old := testRecord("old", model.StatusSuccess)
	old.ProcessedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.UpsertRecord(ctx, old))
	require.NoError(t, st.UpsertRecord(ctx, testRecord("new", model.StatusSuccess)))

	recs, err := st.ListRecords(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "new", recs[0].EpisodeID)
	assert.Equal(t, "old", recs[1].EpisodeID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}
