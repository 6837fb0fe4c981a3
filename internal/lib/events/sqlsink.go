package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	pool TEXT NOT NULL,
	owner TEXT NOT NULL,
	time INTEGER NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS event_pool_owner ON event(pool, owner);`

// Record is a stored event as read back from an SQLSink.
type Record struct {
	Seq   int64
	Kind  Kind
	Pool  string
	Owner string
	Time  int64
	Data  json.RawMessage
}

// SQLSink keeps an event history in SQLite.
type SQLSink struct {
	path          string
	db            *sql.DB
	sqliteVersion string
}

func NewSQLSink(path string) (*SQLSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating event table: %w", err)
	}
	s, _, _ := sqlite3.Version()
	return &SQLSink{
		path:          path,
		db:            db,
		sqliteVersion: s,
	}, nil
}

func NewMemSQLSink() (*SQLSink, error) {
	return NewSQLSink(":memory:")
}

func (s *SQLSink) Path() string {
	return s.path
}

func (s *SQLSink) SQLiteVersion() string {
	return s.sqliteVersion
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}

func (s *SQLSink) Emit(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	meta := ev.Meta()
	_, err = s.db.ExecContext(ctx, "INSERT INTO event(kind, pool, owner, time, data) VALUES (?, ?, ?, ?, ?);",
		string(ev.Kind()), meta.Pool, ev.Owner(), meta.Time, data)
	return err
}

// Query returns the most recent events for pool, newest first.  owner filters to one depositor when non-empty
// and limit <= 0 means no limit.
func (s *SQLSink) Query(ctx context.Context, pool, owner string, limit int) ([]Record, error) {
	var (
		args = []interface{}{pool}
		stmt = "SELECT seq, kind, pool, owner, time, data FROM event WHERE pool = ?"
	)
	if owner != "" {
		stmt += " AND owner = ?"
		args = append(args, owner)
	}
	stmt += " ORDER BY seq DESC"
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec  Record
			kind string
			data []byte
		)
		if err := rows.Scan(&rec.Seq, &kind, &rec.Pool, &rec.Owner, &rec.Time, &data); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		rec.Data = data
		records = append(records, rec)
	}
	return records, rows.Err()
}
