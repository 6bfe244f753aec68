package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/claude/zwoforge/internal/models"
)

// ErrInvalidBlock matches every expansion failure.
var ErrInvalidBlock = errors.New("invalid block")

// BlockError reports a malformed block together with its position in the
// plan: Path holds the index at each level of nesting.
type BlockError struct {
	Path []int
	Kind models.BlockKind
	Err  error
}

// PathString renders Path as blocks[2].blocks[0].
func (e *BlockError) PathString() string {
	parts := make([]string, len(e.Path))
	for i, idx := range e.Path {
		parts[i] = fmt.Sprintf("blocks[%d]", idx)
	}
	return strings.Join(parts, ".")
}

func (e *BlockError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %v", e.PathString(), e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.PathString(), e.Kind, e.Err)
}

// Unwrap exposes both ErrInvalidBlock and the underlying cause to errors.Is.
func (e *BlockError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidBlock}
	}
	return []error{ErrInvalidBlock, e.Err}
}

func blockErr(path []int, kind models.BlockKind, format string, args ...any) *BlockError {
	return &BlockError{Path: clonePath(path), Kind: kind, Err: fmt.Errorf(format, args...)}
}

func clonePath(path []int) []int {
	out := make([]int, len(path))
	copy(out, path)
	return out
}
