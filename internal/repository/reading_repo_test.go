package repository

import (
	"database/sql/driver"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"pimonitor"
	"pimonitor/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestReadingAppend(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewReadingSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertReadingSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 21.5, 70.7, 45.2, "2026-03-01T12:00:00").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), pimonitor.ReadingSample{
		TemperatureCelsius:    21.5,
		TemperatureFahrenheit: 70.7,
		HumidityPercent:       45.2,
		SourceTimestamp:       "2026-03-01T12:00:00",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestReadingList(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "recorded_at", "temp_c", "temp_f", "humidity", "source_ts"}

	tests := []struct {
		name  string
		from  time.Time
		limit int
		query string
		args  []driver.Value
	}{
		{
			name:  "default limit",
			query: `SELECT ` + readingColumns + ` FROM (SELECT ` + readingColumns + ` FROM readings ORDER BY recorded_at DESC LIMIT ?) ORDER BY recorded_at ASC`,
			args:  []driver.Value{defaultReadingListLimit},
		},
		{
			name:  "from and limit",
			from:  from,
			limit: 5,
			query: `SELECT ` + readingColumns + ` FROM (SELECT ` + readingColumns + ` FROM readings WHERE recorded_at >= ? ORDER BY recorded_at DESC LIMIT ?) ORDER BY recorded_at ASC`,
			args:  []driver.Value{from, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newSQLMock(t)
			repo := NewReadingSQLite(db)

			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(cols).
					AddRow("r1", from.Add(time.Minute), 21.5, 70.7, 45.2, "t1").
					AddRow("r2", from.Add(2*time.Minute), 22.0, 71.6, 44.0, "t2"))

			got, err := repo.List(ctx(t), tt.from, time.Time{}, tt.limit)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 2 || got[0].ID != "r1" || got[1].HumidityPercent != 44.0 {
				t.Fatalf("unexpected samples: %+v", got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("mock expectations: %v", err)
			}
		})
	}
}

func TestReadingList_LatestWithinLimitOnSQLite(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "pimonitor.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	repo := NewReadingSQLite(conn)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Append(ctx(t), pimonitor.ReadingSample{
			RecordedAt:         base.Add(time.Duration(i) * time.Minute),
			TemperatureCelsius: 20 + float64(i),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := repo.List(ctx(t), base.Add(time.Minute), time.Time{}, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].TemperatureCelsius != 23 || got[1].TemperatureCelsius != 24 {
		t.Fatalf("want the two latest samples oldest first, got %+v", got)
	}
	if !got[0].RecordedAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("recorded_at = %v", got[0].RecordedAt)
	}
}
