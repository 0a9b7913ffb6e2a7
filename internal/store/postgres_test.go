package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readlist/readlist-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit
// testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at`).
		WithArgs("unknown-episode").
		WillReturnRows(pgxmock.NewRows([]string{
			"episode_id", "episode_title", "status", "parser",
			"book_count", "confidence", "error_detail", "processed_at",
		}))

	rec, err := s.GetRecord(context.Background(), "unknown-episode")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM processed_episodes WHERE episode_id = \$1`).
		WithArgs("ep1").
		WillReturnRows(pgxmock.NewRows([]string{
			"episode_id", "episode_title", "status", "parser",
			"book_count", "confidence", "error_detail", "processed_at",
		}).AddRow("ep1", "Episode 1", "success", "manual", 6, 1.0, "", now))

	rec, err := s.GetRecord(context.Background(), "ep1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.StatusSuccess, rec.Status)
	assert.Equal(t, model.ParserManual, rec.Parser)
	assert.Equal(t, 6, rec.BookCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := model.ProcessingRecord{
		EpisodeID:   "ep1",
		Status:      model.StatusSuccess,
		Parser:      model.ParserManual,
		BookCount:   6,
		Confidence:  1.0,
		ProcessedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO processed_episodes`).
		WithArgs(rec.EpisodeID, rec.EpisodeTitle, "success", "manual",
			rec.BookCount, rec.Confidence, rec.ErrorDetail, rec.ProcessedAt.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertRecord(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceBooks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM books WHERE episode_id = \$1`).
		WithArgs("ep1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO books`).
		WithArgs(pgxmock.AnyArg(), "ep1", "", "Educated", "Tara Westover", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	books := []model.Book{{EpisodeID: "ep1", Title: "Educated", Author: "Tara Westover"}}
	require.NoError(t, s.ReplaceBooks(context.Background(), "ep1", books))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceBooks_RollbackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM books`).
		WithArgs("ep1").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.ReplaceBooks(context.Background(), "ep1", nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`GROUP BY status, parser`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "parser", "count"}).
			AddRow("success", "manual", 3).
			AddRow("failed", "model", 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByStatus["success"])
	assert.Equal(t, 1, stats.ByParser["model"])
	assert.Equal(t, 12, stats.TotalBooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}
