package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pimonitor"

	"github.com/google/uuid"
)

const (
	insertReadingSQL = `
		INSERT INTO readings (id, recorded_at, temp_c, temp_f, humidity, source_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	readingColumns          = `id, recorded_at, temp_c, temp_f, humidity, source_ts`
	defaultReadingListLimit = 1000
)

// ReadingSQLite stores successful sensor readings for the history view.
type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

// Append stores one sample, filling ID and RecordedAt when empty.
func (r *ReadingSQLite) Append(ctx context.Context, s pimonitor.ReadingSample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		s.ID,
		s.RecordedAt.UTC(),
		s.TemperatureCelsius,
		s.TemperatureFahrenheit,
		s.HumidityPercent,
		s.SourceTimestamp,
	)
	if err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	return nil
}

// List returns the latest limit samples in [from, to] (zero bounds are open),
// in chronological order. A non-positive limit means the default cap.
func (r *ReadingSQLite) List(ctx context.Context, from, to time.Time, limit int) ([]pimonitor.ReadingSample, error) {
	var f filter
	f.within("recorded_at", from, to)
	if limit <= 0 {
		limit = defaultReadingListLimit
	}

	q := `SELECT ` + readingColumns + ` FROM (SELECT ` + readingColumns + ` FROM readings` + f.clause() +
		` ORDER BY recorded_at DESC LIMIT ?) ORDER BY recorded_at ASC`
	rows, err := r.db.QueryContext(ctx, q, append(f.args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	out := make([]pimonitor.ReadingSample, 0)
	for rows.Next() {
		var s pimonitor.ReadingSample
		if err := rows.Scan(&s.ID, &s.RecordedAt, &s.TemperatureCelsius, &s.TemperatureFahrenheit, &s.HumidityPercent, &s.SourceTimestamp); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		s.RecordedAt = s.RecordedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return out, nil
}
