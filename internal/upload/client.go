package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/zwoforge/internal/models"
)

// RejectedError is returned when the server refuses a plan. It is not
// retried.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (status %d): %s", e.Status, strings.TrimSpace(e.Body))
}

// Client sends plans to the zwoforge server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the zwoforge server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// ServerURL returns the base URL plans are sent to.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// PushPlan POSTs a plan to the server's workout library and returns the
// stored row. Retries up to 3 times with exponential backoff on transport
// errors and 5xx responses.
func (c *Client) PushPlan(ctx context.Context, source []byte) (*models.WorkoutRow, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/workouts", bytes.NewReader(source))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/yaml")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated:
			var row models.WorkoutRow
			if err := json.Unmarshal(body, &row); err != nil {
				return nil, fmt.Errorf("decoding workout: %w", err)
			}
			return &row, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("push failed (status %d): %s", resp.StatusCode, body)
		default:
			return nil, &RejectedError{Status: resp.StatusCode, Body: string(body)}
		}
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
