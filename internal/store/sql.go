package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"hookboard/internal/model"
)

// SQLStore backs the event log with Postgres or SQLite. Uniqueness of
// request_id is enforced by the schema, and Upsert relies on a conflict-
// ignoring insert so concurrent redeliveries race safely inside the database
// instead of through a check-then-insert in the handler.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("nil db")
	}
	d := strings.ToLower(strings.TrimSpace(dialect))
	if d != "postgres" && d != "sqlite" {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Upsert(ctx context.Context, ev model.CanonicalEvent) (UpsertStatus, error) {
	if err := validateEvent(ev); err != nil {
		return "", err
	}

	var query string
	if s.dialect == "postgres" {
		query = `INSERT INTO events (request_id, author, action, from_branch, to_branch, event_time)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (request_id) DO NOTHING`
	} else {
		query = `INSERT OR IGNORE INTO events (request_id, author, action, from_branch, to_branch, event_time)
			VALUES (?, ?, ?, ?, ?, ?)`
	}

	res, err := s.db.ExecContext(ctx, query,
		ev.RequestID,
		ev.Author,
		string(ev.Action),
		ev.FromBranch,
		ev.ToBranch,
		s.tsValue(ev.Timestamp),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert event: %v", ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("%w: rows affected: %v", ErrUnavailable, err)
	}
	if affected == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}

func (s *SQLStore) ListAll(ctx context.Context) ([]model.CanonicalEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, author, action, from_branch, to_branch, event_time FROM events ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]model.CanonicalEvent, 0)
	for rows.Next() {
		var ev model.CanonicalEvent
		var action string
		var tsRaw interface{}
		if err := rows.Scan(&ev.RequestID, &ev.Author, &action, &ev.FromBranch, &ev.ToBranch, &tsRaw); err != nil {
			return nil, fmt.Errorf("%w: scan event: %v", ErrUnavailable, err)
		}
		ev.Action = model.Action(action)
		ts, err := parseTimeRaw(tsRaw)
		if err != nil {
			return nil, err
		}
		ev.Timestamp = ts
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate events: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *SQLStore) tsValue(t time.Time) interface{} {
	if s.dialect == "sqlite" {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

func parseTimeRaw(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseTimeString(string(t))
	case string:
		return parseTimeString(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported time type %T", v)
	}
}

func parseTimeString(in string) (time.Time, error) {
	in = strings.TrimSpace(in)
	formats := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999-07:00", "2006-01-02 15:04:05"}
	for _, f := range formats {
		if t, err := time.Parse(f, in); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s", in)
}
