package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/zwoforge/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultListLimit caps ListWorkouts when no limit is given.
const DefaultListLimit = 100

// InsertWorkout stores row, assigning an ID and creation time when unset.
// The stored row is returned.
func (db *DB) InsertWorkout(ctx context.Context, row models.WorkoutRow) (models.WorkoutRow, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, slug, name, author, sport, description,
		 total_seconds, estimated_tss, plan_source, zwo, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		row.ID, row.Slug, row.Name, row.Author, string(row.Sport), row.Description,
		row.TotalSeconds, row.EstimatedTSS, row.PlanSource, row.ZWO, row.CreatedAt)
	if err != nil {
		return models.WorkoutRow{}, fmt.Errorf("inserting workout: %w", err)
	}
	return row, nil
}

// ListWorkouts returns the newest workouts first, without plan source or
// document bodies.
func (db *DB) ListWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id::text, slug, name, author, sport, description, total_seconds, estimated_tss, created_at
		 FROM workouts
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var out []models.WorkoutRow
	for rows.Next() {
		var (
			r     models.WorkoutRow
			id    string
			sport string
		)
		if err := rows.Scan(&id, &r.Slug, &r.Name, &r.Author, &sport, &r.Description,
			&r.TotalSeconds, &r.EstimatedTSS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing workout id: %w", err)
		}
		r.Sport = models.Sport(sport)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workouts: %w", err)
	}
	return out, nil
}

// GetWorkout retrieves a single workout including its plan and document.
func (db *DB) GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRow, error) {
	var (
		r     models.WorkoutRow
		sport string
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT slug, name, author, sport, description, total_seconds, estimated_tss,
		 plan_source, zwo, created_at
		 FROM workouts WHERE id = $1`,
		id).Scan(&r.Slug, &r.Name, &r.Author, &sport, &r.Description, &r.TotalSeconds,
		&r.EstimatedTSS, &r.PlanSource, &r.ZWO, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	r.ID = id
	r.Sport = models.Sport(sport)
	return &r, nil
}

// DeleteWorkout removes a workout.
func (db *DB) DeleteWorkout(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
