package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pimonitor"

	"github.com/google/uuid"
)

// ActivitySQLite is the append-only activity log. Types are stored upper-case.
type ActivitySQLite struct {
	db *sql.DB
}

func NewActivitySQLite(db *sql.DB) *ActivitySQLite { return &ActivitySQLite{db: db} }

const (
	insertActivitySQL = `
		INSERT INTO activity_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`
	selectActivitySQL = `SELECT id, occurred_at, type, message, meta FROM activity_events`
)

func normalizeActivityType(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// Append stores e, assigning an id and the current time when they are unset.
func (r *ActivitySQLite) Append(ctx context.Context, e pimonitor.ActivityEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	at := e.OccurredAt.UTC()
	if e.OccurredAt.IsZero() {
		at = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertActivitySQL,
		e.EventID, at, normalizeActivityType(e.Type), e.Description, encodeMeta(e.Metadata))
	if err != nil {
		return fmt.Errorf("append activity %s: %w", e.Type, err)
	}
	return nil
}

// List returns events in [from, to], optionally of one type, oldest first.
func (r *ActivitySQLite) List(ctx context.Context, from, to time.Time, typ string) ([]pimonitor.ActivityEvent, error) {
	var f filter
	f.within("occurred_at", from, to)
	if typ = normalizeActivityType(typ); typ != "" {
		f.where("type = ?", typ)
	}

	rows, err := r.db.QueryContext(ctx, selectActivitySQL+f.clause()+" ORDER BY occurred_at ASC", f.args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := make([]pimonitor.ActivityEvent, 0)
	for rows.Next() {
		var (
			ev   pimonitor.ActivityEvent
			meta sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.Metadata = decodeMeta(meta)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return out, nil
}

// encodeMeta returns nil (SQL NULL) for absent or unencodable metadata.
func encodeMeta(v any) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// decodeMeta keeps the raw string when the column is not valid JSON.
func decodeMeta(s sql.NullString) any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return s.String
	}
	return v
}
