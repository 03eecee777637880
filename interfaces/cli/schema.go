package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/infrastructure/executor"
)

// newSchemaCmd creates the schema command.
func (a *App) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the introspected database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			rt, err := a.buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			text, err := renderSchema(cmd.Context(), rt.exec)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, text)
			return nil
		},
	}
}

// renderSchema introspects all base tables into the prompt-facing schema
// description.
func renderSchema(ctx context.Context, exec executor.Executor) (string, error) {
	tables, err := exec.Tables(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, table := range tables {
		columns, err := exec.Describe(ctx, table)
		if err != nil {
			return "", err
		}

		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			def := col.Name + " " + col.DataType
			if !col.Nullable {
				def += " not null"
			}
			parts = append(parts, def)
		}
		fmt.Fprintf(&sb, "%s(%s)\n", table, strings.Join(parts, ", "))
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

func printRows(w io.Writer, rows query.ResultSet) {
	if rows.RowCount == 0 {
		return
	}
	fmt.Fprintf(w, "Rows (%d):\n", rows.RowCount)
	for _, record := range rows.Rows {
		parts := make([]string, 0, len(rows.Columns))
		for _, col := range rows.Columns {
			parts = append(parts, fmt.Sprintf("%s=%v", col, record[col]))
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))
	}
}
