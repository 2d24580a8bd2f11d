package layout

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&GridOverflowError{Total: 14, Budget: GridBudget}, "GRID_OVERFLOW"},
		{fmt.Errorf("wrapped: %w", &LoadError{Problems: []string{"x"}}), "INVALID_DOCTYPE"},
		{indexErrorf("section %d", 4), "INVALID_INDEX"},
		{fmt.Errorf("%w: 13", ErrInvalidWidth), "INVALID_WIDTH"},
		{ErrImplicitSection, "IMPLICIT_SECTION"},
		{fmt.Errorf("%w: ghost", ErrUnknownField), "UNKNOWN_FIELD"},
		{ErrProtectedProperty, "PROTECTED_PROPERTY"},
		{ErrNotLoaded, "NOT_LOADED"},
		{errors.New("db down"), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}
