package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/readlist/readlist-cli/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS processed_episodes (
	episode_id    TEXT PRIMARY KEY,
	episode_title TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	parser        TEXT NOT NULL,
	book_count    INTEGER NOT NULL DEFAULT 0,
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_detail  TEXT NOT NULL DEFAULT '',
	processed_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
	id            TEXT PRIMARY KEY,
	episode_id    TEXT NOT NULL,
	episode_title TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL,
	author        TEXT NOT NULL DEFAULT '',
	source_url    TEXT NOT NULL DEFAULT '',
	UNIQUE(episode_id, title, author)
);

CREATE INDEX IF NOT EXISTS idx_books_episode ON books(episode_id);
CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
CREATE INDEX IF NOT EXISTS idx_records_status ON processed_episodes(status);
`

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore is the shared-database ledger backend.
type PostgresStore struct {
	pool Pool
}

// NewPostgresStore connects to the database at url and verifies the
// connection.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "store: migrate postgres")
	}
	return nil
}

func (s *PostgresStore) UpsertRecord(ctx context.Context, rec model.ProcessingRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_episodes
			(episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (episode_id) DO UPDATE SET
			episode_title = EXCLUDED.episode_title,
			status        = EXCLUDED.status,
			parser        = EXCLUDED.parser,
			book_count    = EXCLUDED.book_count,
			confidence    = EXCLUDED.confidence,
			error_detail  = EXCLUDED.error_detail,
			processed_at  = EXCLUDED.processed_at`,
		rec.EpisodeID, rec.EpisodeTitle, string(rec.Status), string(rec.Parser),
		rec.BookCount, rec.Confidence, rec.ErrorDetail, rec.ProcessedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "store: upsert record")
	}
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, episodeID string) (*model.ProcessingRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at
		FROM processed_episodes WHERE episode_id = $1`, episodeID)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get record")
	}
	return rec, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, limit, offset int) ([]model.ProcessingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at
		FROM processed_episodes
		ORDER BY processed_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "store: list records")
	}
	defer rows.Close()

	var out []model.ProcessingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan record")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "store: list records")
}

func (s *PostgresStore) ReplaceBooks(ctx context.Context, episodeID string, books []model.Book) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM books WHERE episode_id = $1`, episodeID); err != nil {
		return eris.Wrap(err, "store: delete books")
	}

	for _, b := range books {
		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO books (id, episode_id, episode_title, title, author, source_url)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (episode_id, title, author) DO UPDATE SET
				episode_title = EXCLUDED.episode_title,
				source_url    = EXCLUDED.source_url`,
			id, episodeID, b.EpisodeTitle, b.Title, b.Author, b.SourceURL,
		); err != nil {
			return eris.Wrap(err, "store: insert book")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "store: commit books")
}

func (s *PostgresStore) ListBooks(ctx context.Context, filter BookFilter) ([]model.Book, error) {
	query := `SELECT id, episode_id, episode_title, title, author, source_url FROM books WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.EpisodeID != "" {
		query += ` AND episode_id = ` + arg(filter.EpisodeID)
	}
	if filter.Author != "" {
		query += ` AND author ILIKE ` + arg("%"+filter.Author+"%")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY episode_id, title LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list books")
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.EpisodeID, &b.EpisodeTitle, &b.Title, &b.Author, &b.SourceURL); err != nil {
			return nil, eris.Wrap(err, "store: scan book")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "store: list books")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		ByStatus: make(map[string]int),
		ByParser: make(map[string]int),
	}

	rows, err := s.pool.Query(ctx, `
		SELECT status, parser, COUNT(*) FROM processed_episodes GROUP BY status, parser`)
	if err != nil {
		return nil, eris.Wrap(err, "store: stats")
	}
	defer rows.Close()

	for rows.Next() {
		var status, parser string
		var n int
		if err := rows.Scan(&status, &parser, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan stats")
		}
		stats.Total += n
		stats.ByStatus[status] += n
		stats.ByParser[parser] += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: stats")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&stats.TotalBooks); err != nil {
		return nil, eris.Wrap(err, "store: count books")
	}
	return stats, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
