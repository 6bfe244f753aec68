package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/schema"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Library stores compiled workouts. *storage.DB implements it.
type Library interface {
	InsertWorkout(ctx context.Context, row models.WorkoutRow) (models.WorkoutRow, error)
	ListWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRow, error)
	DeleteWorkout(ctx context.Context, id uuid.UUID) error
}

// Options configures request handling.
type Options struct {
	APIKey string
	// Author is used for plans without one when the caller has no
	// tailnet identity.
	Author          string
	Strict          bool
	UnrollIntervals bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	lib    Library
	allow  *schema.Allowlist
	opts   Options
	whois  WhoIser
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured. lib may be nil, in
// which case the workout library endpoints answer 503.
func New(lib Library, allow *schema.Allowlist, opts Options, log *slog.Logger) *Server {
	s := &Server{
		lib:    lib,
		allow:  allow,
		opts:   opts,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Post("/api/v1/compile", s.handleCompile)
	s.router.Post("/api/v1/validate", s.handleValidate)
	s.router.Get("/api/v1/schema", s.handleSchema)
	s.router.Get("/api/v1/zones", s.handleZones)
	s.router.Get("/api/v1/me", s.handleMe)

	s.router.Route("/api/v1/workouts", func(r chi.Router) {
		r.Use(s.requireLibrary)
		r.Get("/", s.handleListWorkouts)
		r.Get("/{id}", s.handleGetWorkout)
		r.Get("/{id}/zwo", s.handleGetWorkoutZWO)

		// Writes (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.opts.APIKey))
			r.Post("/", s.handleCreateWorkout)
			r.Delete("/{id}", s.handleDeleteWorkout)
		})
	})
}

// SetTailscale enables tailnet identity lookups for incoming requests.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// MountMCP serves an MCP transport under /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}
