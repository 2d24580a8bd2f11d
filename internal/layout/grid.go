package layout

import (
	"fmt"

	"github.com/matthewbaird/formlayout/internal/types"
)

const (
	// GridBudget is the number of width units shared by a section's columns.
	GridBudget = 12
	// MaxColumnWidth is the largest explicit width a column may carry.
	MaxColumnWidth = GridBudget - 1
)

// ColumnSpan is the computed width of one column.
type ColumnSpan struct {
	Width      int     `json:"width"` // explicit width, 0 when auto
	Auto       bool    `json:"auto"`
	Proportion float64 `json:"proportion"` // share of the section, 0..1
}

// ColumnLayout derives each column's visual proportion from its explicit
// width. widths[0] is ignored: the first column always auto-sizes. A width
// of 0 means auto; auto columns split whatever the fixed columns leave.
func ColumnLayout(widths []int) []ColumnSpan {
	spans := make([]ColumnSpan, len(widths))
	fixed, autos := 0, 0
	for i, w := range widths {
		if i == 0 || w <= 0 {
			spans[i].Auto = true
			autos++
			continue
		}
		spans[i].Width = w
		fixed += w
	}
	remaining := max(GridBudget-fixed, 0)
	for i := range spans {
		if spans[i].Auto {
			spans[i].Proportion = float64(remaining) / float64(autos) / GridBudget
		} else {
			spans[i].Proportion = float64(spans[i].Width) / GridBudget
		}
	}
	return spans
}

// FixedTotal sums the explicit widths of columns 1..N.
func FixedTotal(widths []int) int {
	total := 0
	for i, w := range widths {
		if i > 0 && w > 0 {
			total += w
		}
	}
	return total
}

// ParseWidth validates a width value from an edit. nil clears the width.
func ParseWidth(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	n, ok := types.AsInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrInvalidWidth, types.FormatValue(v))
	}
	if n < 0 || n > MaxColumnWidth {
		return 0, fmt.Errorf("%w: %d outside [0, %d]", ErrInvalidWidth, n, MaxColumnWidth)
	}
	return n, nil
}

// markerWidth reads the width of a Column Break. Missing, dangling and
// out-of-range widths count as auto.
func markerWidth(s *Shadow, markerID string) int {
	if markerID == "" {
		return 0
	}
	f, ok := s.fields[markerID]
	if !ok {
		return 0
	}
	w, ok := f.Int(types.PropWidth)
	if !ok || w < 0 || w > MaxColumnWidth {
		return 0
	}
	return w
}

// sectionWidths returns the explicit width of every column of a section.
func sectionWidths(sec *Section, s *Shadow) []int {
	widths := make([]int, len(sec.Columns))
	for i, col := range sec.Columns {
		if i == 0 {
			continue
		}
		widths[i] = markerWidth(s, col.MarkerID)
	}
	return widths
}

// checkWidthEdit verifies that giving column col the width w keeps the
// section within the grid budget.
func checkWidthEdit(sec *Section, s *Shadow, col, w int) error {
	widths := sectionWidths(sec, s)
	widths[col] = w
	if total := FixedTotal(widths); total > GridBudget {
		return &GridOverflowError{Total: total, Budget: GridBudget}
	}
	return nil
}
