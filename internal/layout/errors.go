package layout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIndex rejects out-of-range and no-op move requests.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrUnknownField rejects edits and lookups against identifiers
	// absent from the shadow store.
	ErrUnknownField = errors.New("unknown field")

	// ErrProtectedProperty rejects edits to the identifier, the type tag
	// and the reserved position property.
	ErrProtectedProperty = errors.New("property cannot be edited")

	// ErrInvalidWidth rejects widths outside [0, MaxColumnWidth].
	ErrInvalidWidth = errors.New("invalid column width")

	// ErrImplicitSection rejects section moves that would displace a
	// section without its own Section Break from the head of its tab.
	ErrImplicitSection = errors.New("implicit section cannot leave the first position")

	// ErrNotLoaded is returned by operations on a session with no document.
	ErrNotLoaded = errors.New("no document loaded")
)

// GridOverflowError rejects a width edit whose section total would
// exceed the grid budget.
type GridOverflowError struct {
	Total  int
	Budget int
}

func (e *GridOverflowError) Error() string {
	return fmt.Sprintf("column widths total %d, exceeding the grid budget of %d", e.Total, e.Budget)
}

// LoadError aborts a load. Problems lists every structural defect found.
type LoadError struct {
	Problems []string
}

func (e *LoadError) Error() string {
	return "cannot build layout: " + strings.Join(e.Problems, "; ")
}

func indexErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidIndex}, args...)...)
}

// ErrorCode returns the stable client-facing code of an engine error, or
// "" when err does not come from the engine.
func ErrorCode(err error) string {
	var overflow *GridOverflowError
	var load *LoadError
	switch {
	case errors.As(err, &overflow):
		return "GRID_OVERFLOW"
	case errors.As(err, &load):
		return "INVALID_DOCTYPE"
	case errors.Is(err, ErrInvalidIndex):
		return "INVALID_INDEX"
	case errors.Is(err, ErrInvalidWidth):
		return "INVALID_WIDTH"
	case errors.Is(err, ErrImplicitSection):
		return "IMPLICIT_SECTION"
	case errors.Is(err, ErrUnknownField):
		return "UNKNOWN_FIELD"
	case errors.Is(err, ErrProtectedProperty):
		return "PROTECTED_PROPERTY"
	case errors.Is(err, ErrNotLoaded):
		return "NOT_LOADED"
	}
	return ""
}
