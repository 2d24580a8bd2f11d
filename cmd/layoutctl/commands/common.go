// Package commands implements the layoutctl subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/formlayout/internal/doctype"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/types"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// outputResults writes data as JSON or YAML. Text output is formatted by
// the caller.
func outputResults(w io.Writer, format string, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("invalid output format %q (valid: text, json, yaml)", format)
}

// readFields reads a JSON field array, validates it and returns the
// normalized list. Validation errors are returned as one error.
func readFields(path string) (types.FieldList, doctype.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, doctype.Report{}, fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := doctype.NewValidator()
	if err != nil {
		return nil, doctype.Report{}, err
	}
	report := v.ValidateJSON(data, nil)
	if !report.Valid {
		return nil, report, fmt.Errorf("%s is not a valid field list: %s", path, report.Summary())
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, report, fmt.Errorf("decoding %s: %w", path, err)
	}
	list := doctype.Normalize(raw)
	if err := layout.CheckStructure(list); err != nil {
		return nil, report, err
	}
	return list, report, nil
}

// doctypeName derives a doctype name from a file name:
// "sales_order.json" becomes "Sales Order".
func doctypeName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func writeFields(path string, list types.FieldList) error {
	data, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
