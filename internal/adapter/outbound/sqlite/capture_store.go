// Package sqlite persists capture records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	ts          INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	src_port    INTEGER NOT NULL DEFAULT 0,
	dst_port    INTEGER NOT NULL DEFAULT 0,
	method      TEXT,
	path        TEXT,
	status_code INTEGER NOT NULL DEFAULT 0,
	fingerprint TEXT,
	record      BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_kind ON captures(kind);
CREATE INDEX IF NOT EXISTS idx_captures_fingerprint ON captures(fingerprint);
`

const insertCapture = `INSERT OR REPLACE INTO captures
	(id, ts, kind, src_port, dst_port, method, path, status_code, fingerprint, record)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CaptureStore implements capture.Store on a SQLite file. Rows are
// scanned newest first and filtered in process, so Match may be any
// predicate.
type CaptureStore struct {
	db   *sql.DB
	once sync.Once
}

// Open opens (creating if needed) the database at path. ":memory:" gives
// a private in-memory database.
func Open(ctx context.Context, path string) (*CaptureStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create captures table: %w", err)
	}
	return &CaptureStore{db: db}, nil
}

// Append inserts records in one transaction.
func (s *CaptureStore) Append(ctx context.Context, records ...capture.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertCapture)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Timestamp.UnixNano(), r.Kind.String(),
			int(r.SrcPort), int(r.DstPort),
			r.Method, r.Path, r.StatusCode, r.Fingerprint, doc,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *CaptureStore) Query(ctx context.Context, q capture.Query) ([]capture.Record, error) {
	query := `SELECT record FROM captures ORDER BY seq DESC`
	var args []any
	if q.Kind != httpmsg.KindUnknown {
		query = `SELECT record FROM captures WHERE kind = ? ORDER BY seq DESC`
		args = append(args, q.Kind.String())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	limit := q.EffectiveLimit()
	var result []capture.Record
	for rows.Next() && len(result) < limit {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		var r capture.Record
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("decode capture: %w", err)
		}
		if q.Accepts(r) {
			result = append(result, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return result, nil
}

// Count returns the number of stored records.
func (s *CaptureStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return n, nil
}

// Flush is a no-op; every Append commits.
func (s *CaptureStore) Flush(context.Context) error { return nil }

// Close closes the database.
func (s *CaptureStore) Close() error {
	var err error
	s.once.Do(func() { err = s.db.Close() })
	return err
}

var _ capture.Store = (*CaptureStore)(nil)
