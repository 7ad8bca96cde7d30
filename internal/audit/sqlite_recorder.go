package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/timgst1/aegis/internal/authz"
)

type SQLiteRecorder struct {
	db *sql.DB
}

func NewSQLiteRecorder(db *sql.DB) *SQLiteRecorder {
	return &SQLiteRecorder{db: db}
}

func (r *SQLiteRecorder) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO decisions (id, at, status, subject, verb, api_group, resource, namespace, name, reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.At.UTC().Format(time.RFC3339Nano),
		e.Status,
		e.Subject,
		e.Action.Verb,
		e.Action.APIGroup,
		e.Action.Resource,
		e.Action.Namespace,
		e.Action.Name,
		e.Reason,
	)
	return err
}

func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, at, status, subject, verb, api_group, resource, namespace, name, reason
FROM decisions ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		var a authz.Action
		if err := rows.Scan(&e.ID, &at, &e.Status, &e.Subject, &a.Verb, &a.APIGroup, &a.Resource, &a.Namespace, &a.Name, &e.Reason); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		e.At = t
		e.Action = a
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
