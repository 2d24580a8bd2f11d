package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/formlayout/internal/doctype"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate <fields.json>",
		Short: "Check a field list before import",
		Long: `Validate a JSON array of field objects: every entry needs a fieldname
and a fieldtype, fieldnames must be unique and column widths must fit
the grid. Warnings point out likely misspelled layout markers.

Examples:
  layoutctl validate customer.json
  layoutctl validate customer.json -o json`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			v, err := doctype.NewValidator()
			if err != nil {
				return err
			}
			report := v.ValidateJSON(data, nil)
			if report.Valid {
				if _, _, err := readFields(args[0]); err != nil {
					report.Valid = false
					report.Errors = append(report.Errors, err.Error())
				}
			}

			out := cmd.OutOrStdout()
			if format != FormatText {
				if err := outputResults(out, format, report); err != nil {
					return err
				}
			} else {
				for _, e := range report.Errors {
					fmt.Fprintf(out, "error: %s\n", e)
				}
				for _, w := range report.Warnings {
					fmt.Fprintf(out, "warning: %s\n", w)
				}
				if report.Valid {
					fmt.Fprintf(out, "✓ %s: %d fields, valid\n", args[0], report.FieldCount)
				}
			}
			if !report.Valid {
				return fmt.Errorf("%s: %d errors", args[0], len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", FormatText, "output format (text, json, yaml)")
	return cmd
}
