package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/zwoforge/internal/compiler"
	"github.com/claude/zwoforge/internal/power"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) schema(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, map[string]any{
		"fingerprint": h.deps.Allowlist.Fingerprint(),
		"elements":    h.deps.Allowlist.Map(),
	})
}

func (h *handlers) zones(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, power.Zones())
}

func (h *handlers) standardWarmup(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	steps := compiler.StandardWarmup()
	return jsonResource(req.Params.URI, map[string]any{
		"steps":   steps,
		"summary": compiler.Summarize(steps),
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
