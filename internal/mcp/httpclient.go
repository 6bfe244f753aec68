package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements Library by calling the zwoforge REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the library lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies Library.
var _ Library = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	}
	return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, limit int) ([]models.WorkoutRow, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/api/v1/workouts", params)
	if err != nil {
		return nil, err
	}

	var rows []models.WorkoutRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRow, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var row models.WorkoutRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &row, nil
}
