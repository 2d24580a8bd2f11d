// Package preview renders an editing session for people: a styled outline
// of the layout for terminals and a markdown hand-off document for
// applying a reconciled list to a doctype's source file.
package preview

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/types"
)

// Colors of the outline.
const (
	ColorTab     = "#2196F3"
	ColorSection = "#4CAF50"
	ColorColumn  = "#FF9800"
	ColorHidden  = "#888888"
	ColorBadge   = "#F44336"
)

var (
	TabStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorTab))
	SectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorSection))
	ColumnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorColumn))
	HiddenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHidden))
	BadgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBadge))
	DimStyle     = lipgloss.NewStyle().Faint(true)
)

// Render draws the render tree as an indented outline, marking the
// current tab.
func Render(rt *layout.RenderTree) string {
	var b strings.Builder
	for ti, tab := range rt.Tabs {
		cursor := " "
		if ti == rt.CurrentTab {
			cursor = "▸"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", cursor, TabStyle.Render("TAB: "+tab.Label)))
		for _, sec := range tab.Sections {
			renderSection(&b, sec)
		}
	}
	return b.String()
}

func renderSection(b *strings.Builder, sec layout.RenderSection) {
	label := sec.Label
	if label == "" {
		label = "(untitled)"
	}
	line := SectionStyle.Render("SECTION: " + label)
	if sec.Collapsible {
		line += " " + DimStyle.Render("(collapsible)")
	}
	b.WriteString("  " + line + "\n")

	for ci, col := range sec.Columns {
		b.WriteString("    " + ColumnStyle.Render(columnHeading(ci, col)) + "\n")
		for _, f := range col.Fields {
			b.WriteString("      " + fieldLine(f) + "\n")
		}
	}
}

func columnHeading(i int, col layout.RenderColumn) string {
	size := "auto"
	if !col.Span.Auto {
		size = fmt.Sprintf("width %d", col.Span.Width)
	}
	pct := fmt.Sprintf("%.0f%%", col.Span.Proportion*100)
	if i == 0 || col.Marker == nil {
		return fmt.Sprintf("Column %d (%s, %s)", i+1, size, pct)
	}
	return fmt.Sprintf("Column %d: %s (%s, %s)", i+1, col.Marker.Name, size, pct)
}

func fieldLine(f types.Field) string {
	text := fmt.Sprintf("• %s [%s]", f.Label(), f.Type)
	if f.Label() != f.Name {
		text += " " + f.Name
	}
	if f.Flag(types.PropHidden) {
		return HiddenStyle.Render(text) + " " + BadgeStyle.Render("[HIDDEN]")
	}
	if f.Flag(types.PropRequired) {
		text += " *"
	}
	return text
}

// Markdown builds the hand-off document that carries a reconciled list
// back to the doctype's source definition.
func Markdown(doctype string, list types.FieldList) (string, error) {
	order, err := json.MarshalIndent(list.Names(), "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding field order: %w", err)
	}
	fields, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding fields: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Update Layout for DocType: %s\n\n", doctype)
	fmt.Fprintf(&b, "Please update the JSON file for DocType `%s` with the following layout changes.\n\n", doctype)
	fmt.Fprintf(&b, "### New field_order:\n```json\n%s\n```\n\n", order)
	fmt.Fprintf(&b, "### New fields array:\n```json\n%s\n```\n\n", fields)
	b.WriteString("### Instructions:\n")
	b.WriteString("1. Replace the `field_order` array in the JSON file with the new one above\n")
	b.WriteString("2. Replace the `fields` array in the JSON file with the new one above\n")
	b.WriteString("3. Bump the version number\n")
	b.WriteString("4. Commit and push\n")
	return b.String(), nil
}
