package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/formlayout/cmd/layoutctl/commands"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "layoutctl",
	Short: "Validate, preview and rearrange form layouts",
	Long: `layoutctl works on doctype field lists stored as JSON arrays of
field objects. It validates them, previews their tab/section/column
structure, applies layout command scripts and seeds the layout store.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of layoutctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "layoutctl version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
	rootCmd.AddCommand(commands.NewApplyCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
