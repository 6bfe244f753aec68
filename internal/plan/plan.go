// Package plan reads workout plans from YAML or JSON documents.
package plan

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/claude/zwoforge/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan is returned when a plan fails its top-level checks.
var ErrInvalidPlan = errors.New("invalid plan")

// DefaultAuthor is written when neither the plan nor the caller names one.
const DefaultAuthor = "zwoforge"

// DefaultTags is used when the plan has no tags key.
var DefaultTags = []string{"CUSTOM"}

// Load reads and parses the plan at path. JSON plans are accepted as well,
// since JSON is a subset of YAML.
func Load(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan document and fills in sport and tag defaults.
// Author is left to ApplyDefaults so callers can supply their own.
func Parse(data []byte) (*models.Plan, error) {
	var p models.Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if p.Sport == "" {
		p.Sport = models.SportBike
	}
	p.Sport = models.Sport(strings.ToLower(strings.TrimSpace(string(p.Sport))))
	if p.Tags == nil {
		p.Tags = append([]string(nil), DefaultTags...)
	}
	return &p, nil
}

// ApplyDefaults sets the author when the plan has none, falling back to
// DefaultAuthor when author is empty too.
func ApplyDefaults(p *models.Plan, author string) {
	if strings.TrimSpace(p.Author) != "" {
		return
	}
	if author == "" {
		author = DefaultAuthor
	}
	p.Author = author
}

// Validate checks the plan-level fields. Block contents are checked during
// expansion.
func Validate(p *models.Plan) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if !p.Sport.Valid() {
		return fmt.Errorf("%w: unsupported sport %q", ErrInvalidPlan, p.Sport)
	}
	if p.FTP != nil && *p.FTP <= 0 {
		return fmt.Errorf("%w: ftp must be > 0, got %g", ErrInvalidPlan, *p.FTP)
	}
	return nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a workout name into a file name stem.
func Slugify(name string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")
	if s == "" {
		return "workout"
	}
	return s
}
