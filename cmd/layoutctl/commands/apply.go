package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/repl/executor"
	"github.com/matthewbaird/formlayout/internal/repl/lcl"
	"github.com/matthewbaird/formlayout/internal/store"
	"github.com/matthewbaird/formlayout/internal/types"
)

// ApplyResult is the structured output of apply.
type ApplyResult struct {
	Doctype    string            `json:"doctype" yaml:"doctype"`
	Statements int               `json:"statements" yaml:"statements"`
	Commits    []types.ChangeSet `json:"commits,omitempty" yaml:"commits,omitempty"`
	Pending    types.ChangeSet   `json:"pending,omitempty" yaml:"pending,omitempty"`
	Output     string            `json:"output,omitempty" yaml:"output,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	var (
		script  string
		outPath string
		name    string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "apply <fields.json> --script <file.lcl>",
		Short: "Run a layout command script against a field list",
		Long: `Apply loads a field list into an editing session, runs every statement
of a layout command script against it and prints the resulting change
sets. With --out the reconciled field list is written to a file.

Examples:
  layoutctl apply customer.json --script reorder.lcl
  layoutctl apply customer.json --script reorder.lcl --out customer.out.json -o json`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if script == "" {
				return errors.New("--script is required")
			}
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _, err := readFields(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = doctypeName(args[0])
			}
			src, err := os.ReadFile(script)
			if err != nil {
				return fmt.Errorf("reading %s: %w", script, err)
			}
			stmts, parseErrs := lcl.Parse(string(src))
			if len(parseErrs) > 0 {
				errs := make([]error, len(parseErrs))
				for i, pe := range parseErrs {
					errs[i] = fmt.Errorf("%s: %w", script, pe)
				}
				return errors.Join(errs...)
			}

			ctx := cmd.Context()
			st := store.NewMemoryStore()
			if err := st.ImportBase(ctx, name, list); err != nil {
				return err
			}
			s := layout.NewSession()
			if err := s.LoadFrom(ctx, st, name); err != nil {
				return err
			}

			res := ApplyResult{Doctype: name, Statements: len(stmts)}
			exec := executor.New(st, nil)
			out := cmd.OutOrStdout()
			for _, stmt := range stmts {
				if _, ok := stmt.(*lcl.MetaCmdStmt); ok {
					continue
				}
				r, err := exec.Execute(ctx, "layoutctl", s, stmt)
				if err != nil {
					line, col := lineCol(src, stmt.Pos())
					return fmt.Errorf("%s:%d:%d: %w", script, line, col, err)
				}
				if a, ok := stmt.(*lcl.ActionStmt); ok && a.Action == lcl.ActionCommit && r.Kind == executor.KindChanges {
					res.Commits = append(res.Commits, r.Changes)
				}
				if format == FormatText && r.Message != "" {
					fmt.Fprintln(out, r.Message)
				}
			}

			pending, err := s.ChangeSet()
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				res.Pending = pending
			}
			if outPath != "" {
				if err := writeFields(outPath, s.Flatten()); err != nil {
					return err
				}
				res.Output = outPath
			}

			if format != FormatText {
				return outputResults(out, format, res)
			}
			if len(pending) > 0 {
				fmt.Fprintf(out, "%d uncommitted changes across %d fields\n", pending.Len(), len(pending))
				for _, id := range pending.IDs() {
					for prop, v := range pending[id] {
						fmt.Fprintf(out, "  %s.%s = %s\n", id, prop, types.FormatValue(v))
					}
				}
			}
			if outPath != "" {
				fmt.Fprintf(out, "✓ Wrote %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "layout command script to run")
	cmd.Flags().StringVar(&outPath, "out", "", "write the reconciled field list to this file")
	cmd.Flags().StringVar(&name, "doctype", "", "doctype name (default: derived from the file name)")
	cmd.Flags().StringVarP(&format, "output", "o", FormatText, "output format (text, json, yaml)")
	return cmd
}

// lineCol converts a byte offset of src to a 1-based line and column.
func lineCol(src []byte, pos int) (int, int) {
	line, col := 1, 1
	for i := 0; i < pos && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
