package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pimonitor"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

const (
	snapshotRowID = 1

	upsertSnapshotSQL = `
		INSERT INTO dashboard_state (id, reading, faces, objects, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reading=excluded.reading,
			faces=excluded.faces,
			objects=excluded.objects,
			updated_at=excluded.updated_at
	`

	selectSnapshotSQL = `
		SELECT reading, faces, objects, updated_at
		FROM dashboard_state WHERE id=?
	`
)

// marshalReading stores the reading as JSON; nil becomes SQL NULL.
func marshalReading(r *pimonitor.SensorReading) (*string, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func unmarshalReading(s sql.NullString) (*pimonitor.SensorReading, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var r pimonitor.SensorReading
	if err := json.Unmarshal([]byte(s.String), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Save upserts the single dashboard_state row.
func (r *SnapshotSQLite) Save(ctx context.Context, s pimonitor.Snapshot) error {
	reading, err := marshalReading(s.Reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertSnapshotSQL,
		snapshotRowID,
		reading,
		s.Detection.Faces,
		s.Detection.Objects,
		ts,
	)
	return err
}

// Load returns the stored snapshot, or a zero Snapshot when none exists yet.
func (r *SnapshotSQLite) Load(ctx context.Context) (pimonitor.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSnapshotSQL, snapshotRowID)

	var (
		s       pimonitor.Snapshot
		reading sql.NullString
	)
	if err := row.Scan(&reading, &s.Detection.Faces, &s.Detection.Objects, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pimonitor.Snapshot{}, nil
		}
		return pimonitor.Snapshot{}, err
	}

	rd, err := unmarshalReading(reading)
	if err != nil {
		return pimonitor.Snapshot{}, fmt.Errorf("unmarshal reading: %w", err)
	}
	s.Reading = rd
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
