package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database. The indexed columns
// serve Query, the full record is kept as JSON.
type SQLiteStore struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY between the simulation and the API
	db.SetMaxOpenConns(1)
	stmt, err := prepare(db)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, insert: stmt}, nil
}

const sqliteSchema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
CREATE TABLE IF NOT EXISTS sim_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT,
    kind TEXT,
    at_ms INTEGER,
    object_id TEXT,
    record TEXT
);
CREATE INDEX IF NOT EXISTS sim_records_kind ON sim_records (kind, at_ms);
CREATE INDEX IF NOT EXISTS sim_records_run ON sim_records (run_id);`

func prepare(db *sql.DB) (*sql.Stmt, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, err
	}
	return db.Prepare(`INSERT INTO sim_records (run_id, kind, at_ms, object_id, record) VALUES (?, ?, ?, ?, ?)`)
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.insert.ExecContext(ctx, rec.RunID, string(rec.Kind), rec.At.Millis(), rec.ObjectID(), string(b))
	return err
}

// Query returns records matching q ordered by insertion.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM sim_records WHERE 1=1`
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if !q.Start.IsZero() {
		query += ` AND at_ms >= ?`
		args = append(args, q.Start.Millis())
	}
	if !q.End.IsZero() {
		query += ` AND at_ms <= ?`
		args = append(args, q.End.Millis())
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		// object ids of trips match several columns, filter in Go
		if q.ObjectID != "" && !q.matchObject(r) {
			continue
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
