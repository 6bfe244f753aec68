package mcp

import (
	"bytes"
	"context"
	"errors"

	"github.com/claude/zwoforge/internal/builder"
	"github.com/claude/zwoforge/internal/compiler"
	"github.com/claude/zwoforge/internal/power"
	"github.com/claude/zwoforge/internal/storage"
	"github.com/claude/zwoforge/internal/validator"
	"github.com/claude/zwoforge/internal/zwo"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolCompileWorkout = mcp.NewTool("compile_workout",
	mcp.WithDescription("Compile a workout plan (YAML or JSON) into a Zwift .zwo document. Returns the slug, a summary, validation issues and the XML."),
	mcp.WithString("plan", mcp.Required(), mcp.Description("Plan source with name, ftp and a list of blocks (warmup, cooldown, ramp, steady, intervals, freeride, maxeffort, textevent, repeat, standard_warmup)")),
	mcp.WithBoolean("unroll_intervals", mcp.Description("Emit each interval repetition as a separate SteadyState segment instead of IntervalsT")),
)

var toolValidateWorkout = mcp.NewTool("validate_workout",
	mcp.WithDescription("Check a .zwo document against the Zwift element and attribute allowlist."),
	mcp.WithString("zwo", mcp.Required(), mcp.Description("The .zwo XML document")),
	mcp.WithBoolean("strict", mcp.Description("Also require a workout_file root with a workout element")),
)

var toolListZones = mcp.NewTool("list_zones",
	mcp.WithDescription("List the power zones accepted as power targets."),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workouts saved in the library, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts. Defaults to 100.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Fetch a saved workout including its plan source and .zwo document."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout UUID")),
)

// --- Tool handlers ---

type compileResult struct {
	Slug    string            `json:"slug"`
	Name    string            `json:"name"`
	Author  string            `json:"author"`
	Summary compiler.Summary  `json:"summary"`
	Valid   bool              `json:"valid"`
	Issues  []validator.Issue `json:"issues,omitempty"`
	ZWO     string            `json:"zwo"`
}

func (h *handlers) compileWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("plan")
	if err != nil {
		return mcp.NewToolResultError("plan parameter is required"), nil
	}

	author := AuthorFromContext(ctx)
	if author == "" {
		author = h.deps.Author
	}
	res, err := builder.BuildSource([]byte(src), builder.Options{
		Emit:      zwo.EmitOptions{UnrollIntervals: req.GetBool("unroll_intervals", h.deps.UnrollIntervals)},
		Author:    author,
		Allowlist: h.deps.Allowlist,
		Strict:    h.deps.Strict,
	})
	if err != nil {
		return mcp.NewToolResultError("compile failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(compileResult{
		Slug:    res.Slug,
		Name:    res.Plan.Name,
		Author:  res.Plan.Author,
		Summary: res.Summary,
		Valid:   res.Valid(),
		Issues:  res.Issues,
		ZWO:     string(res.XML),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) validateWorkout(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("zwo")
	if err != nil {
		return mcp.NewToolResultError("zwo parameter is required"), nil
	}

	doc, err := zwo.Parse(bytes.NewReader([]byte(src)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issues := validator.Validate(doc, h.deps.Allowlist, validator.Options{Strict: req.GetBool("strict", h.deps.Strict)})

	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	result, err := mcp.NewToolResultJSON(map[string]any{
		"valid":  len(issues) == 0,
		"issues": lines,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listZones(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(power.Zones())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := h.deps.Library.ListWorkouts(ctx, req.GetInt("limit", storage.DefaultListLimit))
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	for i := range rows {
		rows[i].PlanSource, rows[i].ZWO = "", ""
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID"), nil
	}

	row, err := h.deps.Library.GetWorkout(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("workout not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "id", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(row)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
