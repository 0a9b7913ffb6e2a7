package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/readlist/readlist-cli/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed_episodes (
	episode_id    TEXT PRIMARY KEY,
	episode_title TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	parser        TEXT NOT NULL,
	book_count    INTEGER NOT NULL DEFAULT 0,
	confidence    REAL NOT NULL DEFAULT 0,
	error_detail  TEXT NOT NULL DEFAULT '',
	processed_at  TIMESTAMP NOT NULL
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

// SQLiteStore is the default single-file ledger backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "readlist.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}

	// Single writer; WAL keeps readers unblocked during batch runs.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: %s", pragma)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "store: migrate sqlite")
	}
	return nil
}

func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec model.ProcessingRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_episodes
			(episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(episode_id) DO UPDATE SET
			episode_title = excluded.episode_title,
			status        = excluded.status,
			parser        = excluded.parser,
			book_count    = excluded.book_count,
			confidence    = excluded.confidence,
			error_detail  = excluded.error_detail,
			processed_at  = excluded.processed_at`,
		rec.EpisodeID, rec.EpisodeTitle, string(rec.Status), string(rec.Parser),
		rec.BookCount, rec.Confidence, rec.ErrorDetail, rec.ProcessedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "store: upsert record")
	}
	return nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, episodeID string) (*model.ProcessingRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at
		FROM processed_episodes WHERE episode_id = ?`, episodeID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get record")
	}
	return rec, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, limit, offset int) ([]model.ProcessingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT episode_id, episode_title, status, parser, book_count, confidence, error_detail, processed_at
		FROM processed_episodes
		ORDER BY processed_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
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

func (s *SQLiteStore) ReplaceBooks(ctx context.Context, episodeID string, books []model.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE episode_id = ?`, episodeID); err != nil {
		return eris.Wrap(err, "store: delete books")
	}

	for _, b := range books {
		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO books (id, episode_id, episode_title, title, author, source_url)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(episode_id, title, author) DO UPDATE SET
				episode_title = excluded.episode_title,
				source_url    = excluded.source_url`,
			id, episodeID, b.EpisodeTitle, b.Title, b.Author, b.SourceURL,
		); err != nil {
			return eris.Wrap(err, "store: insert book")
		}
	}

	return eris.Wrap(tx.Commit(), "store: commit books")
}

func (s *SQLiteStore) ListBooks(ctx context.Context, filter BookFilter) ([]model.Book, error) {
	query := `SELECT id, episode_id, episode_title, title, author, source_url FROM books WHERE 1=1`
	var args []any
	if filter.EpisodeID != "" {
		query += ` AND episode_id = ?`
		args = append(args, filter.EpisodeID)
	}
	if filter.Author != "" {
		query += ` AND author LIKE ?`
		args = append(args, "%"+filter.Author+"%")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY episode_id, title LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		ByStatus: make(map[string]int),
		ByParser: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `
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

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&stats.TotalBooks); err != nil {
		return nil, eris.Wrap(err, "store: count books")
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.ProcessingRecord, error) {
	var rec model.ProcessingRecord
	var status, parser string
	var processedAt time.Time
	if err := row.Scan(&rec.EpisodeID, &rec.EpisodeTitle, &status, &parser,
		&rec.BookCount, &rec.Confidence, &rec.ErrorDetail, &processedAt); err != nil {
		return nil, err
	}
	rec.Status = model.RecordStatus(status)
	rec.Parser = model.Parser(parser)
	rec.ProcessedAt = processedAt
	return &rec, nil
}
