package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutRow is a compiled workout stored in the workouts table.
type WorkoutRow struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Author       string    `json:"author"`
	Sport        Sport     `json:"sport"`
	Description  string    `json:"description,omitempty"`
	TotalSeconds int       `json:"total_seconds"`
	EstimatedTSS float64   `json:"estimated_tss"`
	PlanSource   string    `json:"plan_source,omitempty"`
	ZWO          string    `json:"zwo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
