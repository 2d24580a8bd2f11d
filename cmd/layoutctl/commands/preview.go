package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/preview"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var tab int
	cmd := &cobra.Command{
		Use:   "preview <fields.json>",
		Short: "Show the tab/section/column structure of a field list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _, err := readFields(args[0])
			if err != nil {
				return err
			}
			s := layout.NewSession()
			if err := s.Load(doctypeName(args[0]), list); err != nil {
				return err
			}
			if err := s.SelectTab(tab); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), preview.Render(s.Structure()))
			return nil
		},
	}
	cmd.Flags().IntVar(&tab, "tab", 0, "tab to mark as current")
	return cmd
}
