package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/doctype"
	"github.com/matthewbaird/formlayout/internal/store"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "import <doctype> <fields.json>",
		Short: "Seed the base fields of a doctype into the layout store",
		Long: `Import validates a field list and stores it as the base fields of a
doctype. Re-importing a doctype may add fields but not drop any.

Examples:
  layoutctl import Customer customer.json --db "file:formlayout.db"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			list, _, err := readFields(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, db, err := store.OpenSQLite(ctx, dsn, zap.NewNop())
			if err != nil {
				return err
			}
			defer db.Close()

			current, _, err := st.Load(ctx, name)
			switch {
			case errors.Is(err, store.ErrNotFound):
			case err != nil:
				return err
			default:
				v, err := doctype.NewValidator()
				if err != nil {
					return err
				}
				if report := v.Validate(list, current); !report.Valid {
					return fmt.Errorf("cannot import %s: %s", name, report.Summary())
				}
			}

			if err := st.ImportBase(ctx, name, list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d fields into %s\n", len(list), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "file:formlayout.db?_pragma=foreign_keys(1)", "SQLite data source name")
	return cmd
}
