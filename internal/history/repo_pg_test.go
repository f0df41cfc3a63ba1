package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoInsertPrunesBeyondCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	item := Item{
		ID:       "hist-1",
		Name:     "Q3 tender",
		TZName:   "spec.pdf",
		KPCount:  2,
		AvgScore: 80,
		Status:   "completed",
		Date:     time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO history_items").
		WithArgs(
			item.ID,
			item.Name,
			item.TZName,
			item.KPCount,
			item.AvgScore,
			item.Status,
			sqlmock.AnyArg(), // payload
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM history_items").
		WithArgs(MaxItems).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Insert(context.Background(), item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCorruptPayloadDegradesToEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "name", "tz_name", "kp_count", "avg_score", "status", "payload", "created_at",
	}).AddRow("hist-1", "broken", "spec.pdf", 2, 80.0, "completed", []byte("{not json"), now)

	mock.ExpectQuery("SELECT (.+) FROM history_items").
		WithArgs("hist-1").
		WillReturnRows(rows)

	item, err := repo.GetByID(context.Background(), "hist-1")
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if item.ID != "hist-1" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if len(item.Results) != 0 || item.Comparison != nil {
		t.Fatalf("expected empty payload after corrupt blob, got %+v", item)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDMissingReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT (.+) FROM history_items").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "tz_name", "kp_count", "avg_score", "status", "payload", "created_at",
		}))

	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
