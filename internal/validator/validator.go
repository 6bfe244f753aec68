// Package validator checks .zwo documents against a schema allowlist.
package validator

import (
	"fmt"
	"os"

	"github.com/claude/zwoforge/internal/schema"
	"github.com/claude/zwoforge/internal/zwo"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	UnknownElement   IssueKind = "unknown_element"
	UnknownAttribute IssueKind = "unknown_attribute"
	// Structure findings are only reported in strict mode.
	Structure IssueKind = "structure"
)

// Issue is a single finding. Issues are data; a document with none is valid.
type Issue struct {
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
	Path      string    `json:"path"`
	Kind      IssueKind `json:"kind"`
	Element   string    `json:"element"`
	Attribute string    `json:"attribute,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func (i Issue) String() string {
	loc := i.File
	if loc == "" {
		loc = "<input>"
	}
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, i.Line)
	}
	switch i.Kind {
	case UnknownElement:
		return fmt.Sprintf("%s: unknown element <%s> (%s)", loc, i.Element, i.Path)
	case UnknownAttribute:
		return fmt.Sprintf("%s: unknown attribute '%s' on <%s> (%s)", loc, i.Attribute, i.Element, i.Path)
	default:
		return fmt.Sprintf("%s: %s", loc, i.Message)
	}
}

// Options controls per-document checks.
type Options struct {
	// Strict also requires a workout_file root with a <workout> child.
	Strict bool
}

// Validate walks doc in document order and reports every element the
// allowlist does not know and every attribute not permitted on its element.
// Attributes of unknown elements are not checked. doc is not modified.
func Validate(doc *zwo.Node, allow *schema.Allowlist, opts Options) []Issue {
	var issues []Issue

	if opts.Strict {
		if doc.Name != "workout_file" {
			issues = append(issues, Issue{
				Line: doc.Line, Path: "/" + doc.Name, Kind: Structure, Element: doc.Name,
				Message: fmt.Sprintf("root tag is '%s', expected 'workout_file'", doc.Name),
			})
		}
		if doc.Child("workout") == nil {
			issues = append(issues, Issue{
				Line: doc.Line, Path: "/" + doc.Name, Kind: Structure, Element: doc.Name,
				Message: "missing <workout> element",
			})
		}
	}

	doc.Walk(func(n *zwo.Node, path string) {
		if !allow.HasElement(n.Name) {
			issues = append(issues, Issue{Line: n.Line, Path: path, Kind: UnknownElement, Element: n.Name})
			return
		}
		for _, a := range n.Attrs {
			if !allow.Permits(n.Name, a.Name) {
				issues = append(issues, Issue{
					Line: n.Line, Path: path, Kind: UnknownAttribute, Element: n.Name, Attribute: a.Name,
				})
			}
		}
	})
	return issues
}

// ValidateFile parses and validates the document at path. Read and parse
// failures are returned as errors.
func ValidateFile(path string, allow *schema.Allowlist, opts Options) ([]Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := zwo.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	issues := Validate(doc, allow, opts)
	for i := range issues {
		issues[i].File = path
	}
	return issues, nil
}
