package repository

import (
	"context"
	"database/sql"
	"time"

	"pimonitor"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*pimonitor.User, error)
}

// SnapshotRepo keeps the last-known dashboard state between restarts.
type SnapshotRepo interface {
	Save(ctx context.Context, s pimonitor.Snapshot) error
	Load(ctx context.Context) (pimonitor.Snapshot, error)
}

// ActivityRepo is the append-only local activity log.
type ActivityRepo interface {
	Append(ctx context.Context, e pimonitor.ActivityEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]pimonitor.ActivityEvent, error)
}

// ReadingRepo stores successful sensor readings for the history view.
type ReadingRepo interface {
	Append(ctx context.Context, s pimonitor.ReadingSample) error
	List(ctx context.Context, from, to time.Time, limit int) ([]pimonitor.ReadingSample, error)
}

type Repository struct {
	Snapshot SnapshotRepo
	Activity ActivityRepo
	Readings ReadingRepo
	Auth     Authorization
}

// NewRepository wires sqlite-backed repositories. A nil db yields an empty
// Repository; services treat nil repos as "persistence disabled".
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return &Repository{}
	}
	return &Repository{
		Snapshot: NewSnapshotSQLite(db),
		Activity: NewActivitySQLite(db),
		Readings: NewReadingSQLite(db),
		Auth:     NewUserRepository(db),
	}
}
