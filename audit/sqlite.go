package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT    NOT NULL UNIQUE,
    kind       TEXT    NOT NULL,
    detail     TEXT    NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_log(kind);
`

// SQLiteStore persists audit records to a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Emit appends one record
func (s *SQLiteStore) Emit(ctx context.Context, e Event) error {
	rec, err := Encode(e)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, kind, detail, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), string(rec.Detail), rec.Timestamp.UnixNano(),
	); err != nil {
		return fmt.Errorf("sqlite: insert %s: %w", rec.Kind, err)
	}
	return nil
}

// List returns the most recent records in insertion order. A limit of zero
// returns everything; a non-empty kind filters by record type.
func (s *SQLiteStore) List(ctx context.Context, kind Kind, limit int) ([]Record, error) {
	query := `SELECT id, kind, detail, created_at FROM (
        SELECT seq, id, kind, detail, created_at FROM audit_log`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list audit log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec    Record
			kindS  string
			detail string
			nanos  int64
		)
		if err := rows.Scan(&rec.ID, &kindS, &detail, &nanos); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit record: %w", err)
		}
		rec.Kind = Kind(kindS)
		rec.Detail = []byte(detail)
		rec.Timestamp = time.Unix(0, nanos).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list audit log rows: %w", err)
	}
	return out, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Log = (*SQLiteStore)(nil)
