package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/claude/zwoforge/internal/builder"
	"github.com/claude/zwoforge/internal/compiler"
	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/plan"
	"github.com/claude/zwoforge/internal/power"
	"github.com/claude/zwoforge/internal/storage"
	"github.com/claude/zwoforge/internal/validator"
	"github.com/claude/zwoforge/internal/zwo"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// compileResponse is returned by the compile endpoint.
type compileResponse struct {
	Slug    string            `json:"slug"`
	Name    string            `json:"name"`
	Author  string            `json:"author"`
	Summary compiler.Summary  `json:"summary"`
	Steps   []models.Step     `json:"steps"`
	Valid   bool              `json:"valid"`
	Issues  []validator.Issue `json:"issues"`
	ZWO     string            `json:"zwo"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	res, ok := s.build(w, r, body)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "zwo" {
		writeZWO(w, res.Slug, res.XML)
		return
	}
	writeJSON(w, http.StatusOK, compileResponse{
		Slug:    res.Slug,
		Name:    res.Plan.Name,
		Author:  res.Plan.Author,
		Summary: res.Summary,
		Steps:   res.Steps,
		Valid:   res.Valid(),
		Issues:  nonNil(res.Issues),
		ZWO:     string(res.XML),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := zwo.Parse(bytes.NewReader(body))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	strict, err := queryBool(r, "strict", s.opts.Strict)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	issues := validator.Validate(doc, s.allow, validator.Options{Strict: strict})
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": nonNil(issues),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fingerprint": s.allow.Fingerprint(),
		"elements":    s.allow.Map(),
	})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, power.Zones())
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	info, ok := userInfoFromContext(r)
	if !ok {
		info = UserInfo{Login: "local", DisplayName: s.defaultAuthor(r)}
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	rows, err := s.lib.ListWorkouts(r.Context(), limit)
	if err != nil {
		s.log.Error("list workouts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.WorkoutRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	res, ok := s.build(w, r, body)
	if !ok {
		return
	}
	if !res.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "compiled workout failed validation",
			"issues": res.Issues,
		})
		return
	}

	row, err := s.lib.InsertWorkout(r.Context(), res.Row(body))
	if err != nil {
		s.log.Error("insert workout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("workout stored", "id", row.ID, "slug", row.Slug)
	row.PlanSource, row.ZWO = "", ""
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	row, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleGetWorkoutZWO(w http.ResponseWriter, r *http.Request) {
	row, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeZWO(w, row.Slug, []byte(row.ZWO))
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}
	if err := s.lib.DeleteWorkout(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
			return
		}
		s.log.Error("delete workout failed", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*models.WorkoutRow, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return nil, false
	}
	row, err := s.lib.GetWorkout(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return nil, false
	}
	if err != nil {
		s.log.Error("get workout failed", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return row, true
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, v)
	}
	return b, nil
}

// build compiles a plan body and writes the error response on failure.
func (s *Server) build(w http.ResponseWriter, r *http.Request, body []byte) (*builder.Result, bool) {
	unroll, err := queryBool(r, "unroll_intervals", s.opts.UnrollIntervals)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	emit := zwo.EmitOptions{UnrollIntervals: unroll}
	res, err := builder.BuildSource(body, builder.Options{
		Emit:      emit,
		Author:    s.defaultAuthor(r),
		Allowlist: s.allow,
		Strict:    s.opts.Strict,
	})
	if err != nil {
		writeBuildError(w, err)
		return nil, false
	}
	return res, true
}

// defaultAuthor is the tailnet display name of the caller, else the
// configured author.
func (s *Server) defaultAuthor(r *http.Request) string {
	if info, ok := userInfoFromContext(r); ok && info.DisplayName != "" {
		return info.DisplayName
	}
	return s.opts.Author
}

func (s *Server) requireLibrary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.lib == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "workout library not configured"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeBuildError(w http.ResponseWriter, err error) {
	resp := map[string]string{"error": err.Error()}
	var be *compiler.BlockError
	switch {
	case errors.As(err, &be):
		resp["path"] = be.PathString()
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, plan.ErrInvalidPlan):
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	default:
		writeJSON(w, http.StatusBadRequest, resp)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return nil, false
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty body"})
		return nil, false
	}
	return body, true
}

func writeZWO(w http.ResponseWriter, slug string, data []byte) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zwo"`, slug))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func nonNil(issues []validator.Issue) []validator.Issue {
	if issues == nil {
		return []validator.Issue{}
	}
	return issues
}
