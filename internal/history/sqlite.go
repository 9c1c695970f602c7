package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// DefaultLimit bounds Recent when the caller passes a non-positive limit.
const DefaultLimit = 20

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.StorageError("open history database").WithCause(err).WithContext("path", dbPath).Build()
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.StorageError("initialize history schema").WithCause(err).WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		trigger_name TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		pages INTEGER NOT NULL DEFAULT 0,
		directories INTEGER NOT NULL DEFAULT 0,
		assets INTEGER NOT NULL DEFAULT 0,
		revision TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a finished build.
func (s *SQLiteStore) Record(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, trigger_name, started_at, duration_ns, success, error, pages, directories, assets, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Trigger, rec.StartedAt.UnixNano(), int64(rec.Duration), rec.Success,
		rec.Error, rec.Pages, rec.Directories, rec.Assets, rec.Revision,
	)
	if err != nil {
		return ferrors.StorageError("insert build record").WithCause(err).WithContext("build_id", rec.ID).Build()
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_name, started_at, duration_ns, success, error, pages, directories, assets, revision
		FROM builds ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, ferrors.StorageError("query build records").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			started  int64
			duration int64
			errText  sql.NullString
			revision sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Trigger, &started, &duration, &rec.Success,
			&errText, &rec.Pages, &rec.Directories, &rec.Assets, &revision); err != nil {
			return nil, ferrors.StorageError("scan build record").WithCause(err).Build()
		}
		rec.StartedAt = time.Unix(0, started)
		rec.Duration = time.Duration(duration)
		rec.Error = errText.String
		rec.Revision = revision.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.StorageError("iterate build records").WithCause(err).Build()
	}
	return records, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
