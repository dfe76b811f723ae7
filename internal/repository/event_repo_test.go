package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"pimonitor"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestActivityAppend_FillsDefaults(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewActivitySQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertActivitySQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "DETECTION_TOGGLE", "faces on", `{"key":"faces"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), pimonitor.ActivityEvent{
		Type:        "  detection_toggle ",
		Description: "faces on",
		Metadata:    map[string]any{"key": "faces"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestActivityAppend_NilMetadataStoresNull(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewActivitySQLite(db)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(insertActivitySQL)).
		WithArgs("evt-1", at, pimonitor.ActivityPollSuspended, "hidden", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), pimonitor.ActivityEvent{
		EventID:     "evt-1",
		OccurredAt:  at,
		Type:        pimonitor.ActivityPollSuspended,
		Description: "hidden",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestActivityAppend_DBError(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewActivitySQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertActivitySQL)).
		WillReturnError(errors.New("disk full"))

	err := repo.Append(ctx(t), pimonitor.ActivityEvent{Type: "x"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("want wrapped disk full, got %v", err)
	}
}

func TestActivityList_NoFilters(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewActivitySQLite(db)

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("a", t1, "ACCESS_LOG_DELETE", "deleted 7", `{"id":7}`).
		AddRow("b", t2, "ACCESS_LOG_CLEAR", "cleared", nil)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM activity_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 events, got %d", len(got))
	}
	meta, ok := got[0].Metadata.(map[string]any)
	if !ok || meta["id"] != float64(7) {
		t.Fatalf("unexpected metadata: %#v", got[0].Metadata)
	}
	if got[1].Metadata != nil {
		t.Fatalf("want nil metadata, got %#v", got[1].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestActivityList_AllFilters(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewActivitySQLite(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM activity_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`)).
		WithArgs(from, to, "SENSOR_ERROR").
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
			AddRow("c", from.Add(time.Hour), "SENSOR_ERROR", "Connection error", "not-json"))

	got, err := repo.List(ctx(t), from, to, " sensor_error")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Metadata != "not-json" {
		t.Fatalf("want raw metadata kept, got %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestActivityList_QueryError(t *testing.T) {
	t.Parallel()
	db, mock := newSQLMock(t)
	repo := NewActivitySQLite(db)

	mock.ExpectQuery("SELECT id, occurred_at").WillReturnError(errors.New("boom"))

	if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatal("expected error")
	}
}
