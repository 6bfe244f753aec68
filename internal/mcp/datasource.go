package mcp

import (
	"context"

	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/storage"
	"github.com/google/uuid"
)

// Library abstracts the workout library for MCP tools. Both *storage.DB
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type Library interface {
	ListWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRow, error)
}

// Compile-time check: *storage.DB satisfies Library.
var _ Library = (*storage.DB)(nil)
