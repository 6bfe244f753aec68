package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/zwoforge/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *DB) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock, NewWithPool(mock)
}

// TestInsertWorkout verifies an ID and timestamp are assigned and every
// column is written.
func TestInsertWorkout(t *testing.T) {
	mock, db := newMock(t)
	mock.ExpectExec(`INSERT INTO workouts`).
		WithArgs(pgxmock.AnyArg(), "sweet_spot", "Sweet Spot", "coach", "bike", "",
			3600, 72.5, "name: Sweet Spot", "<workout_file/>", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	row, err := db.InsertWorkout(context.Background(), models.WorkoutRow{
		Slug: "sweet_spot", Name: "Sweet Spot", Author: "coach", Sport: models.SportBike,
		TotalSeconds: 3600, EstimatedTSS: 72.5, PlanSource: "name: Sweet Spot", ZWO: "<workout_file/>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ID == uuid.Nil || row.CreatedAt.IsZero() {
		t.Errorf("row = %+v, want ID and CreatedAt set", row)
	}
}

// TestInsertWorkoutError verifies database errors are wrapped.
func TestInsertWorkoutError(t *testing.T) {
	mock, db := newMock(t)
	boom := errors.New("boom")
	mock.ExpectExec(`INSERT INTO workouts`).WillReturnError(boom)

	if _, err := db.InsertWorkout(context.Background(), models.WorkoutRow{Name: "x"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

// TestListWorkouts verifies rows are scanned newest first and the default
// limit applies.
func TestListWorkouts(t *testing.T) {
	mock, db := newMock(t)
	id1, id2 := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id::text, slug, name`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "slug", "name", "author", "sport", "description", "total_seconds", "estimated_tss", "created_at",
		}).
			AddRow(id1.String(), "b", "B", "coach", "run", "", 1200, 20.0, now).
			AddRow(id2.String(), "a", "A", "coach", "bike", "easy", 3600, 50.0, now.Add(-time.Hour)))

	rows, err := db.ListWorkouts(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ID != id1 || rows[0].Sport != models.SportRun || rows[1].Description != "easy" {
		t.Errorf("rows = %+v", rows)
	}
}

// TestGetWorkoutNotFound verifies a missing row maps to ErrNotFound.
func TestGetWorkoutNotFound(t *testing.T) {
	mock, db := newMock(t)
	id := uuid.New()
	mock.ExpectQuery(`SELECT slug, name`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	if _, err := db.GetWorkout(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestGetWorkout verifies a full row is returned.
func TestGetWorkout(t *testing.T) {
	mock, db := newMock(t)
	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT slug, name`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"slug", "name", "author", "sport", "description", "total_seconds", "estimated_tss",
			"plan_source", "zwo", "created_at",
		}).AddRow("a", "A", "coach", "bike", "", 600, 10.0, "name: A", "<workout_file/>", now))

	row, err := db.GetWorkout(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ID != id || row.ZWO != "<workout_file/>" || row.Sport != models.SportBike {
		t.Errorf("row = %+v", row)
	}
}

// TestDeleteWorkout verifies deletes and the not-found case.
func TestDeleteWorkout(t *testing.T) {
	mock, db := newMock(t)
	id := uuid.New()
	mock.ExpectExec(`DELETE FROM workouts`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM workouts`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := db.DeleteWorkout(context.Background(), id); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := db.DeleteWorkout(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
