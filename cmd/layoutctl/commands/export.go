package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/formlayout/internal/preview"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <doctype> <fields.json>",
		Short: "Print the markdown hand-off document for a field list",
		Long: `Export renders the field order and field objects of a list as a
markdown document with instructions for updating the doctype's source
definition.

Examples:
  layoutctl export Customer customer.out.json > CHANGES.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _, err := readFields(args[1])
			if err != nil {
				return err
			}
			doc, err := preview.Markdown(args[0], list)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}
