package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	allowWrites bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [statement]",
		Short: "Check a SQL statement against the safety guard",
		Long: `Run a SQL statement through the safety guard without executing it.
The statement is read from the arguments, or from stdin when none are given.

Examples:
  queryagent validate "SELECT * FROM contacts"
  echo "DELETE FROM contacts" | queryagent validate
  queryagent validate --allow-writes "UPDATE contacts SET name = 'x'"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}

			policy := query.Policy{AllowWrites: opts.allowWrites}
			stmt, err := query.Validate(text, policy, query.ProvenanceDirect)
			if err != nil {
				return fmt.Errorf("rejected: %w", err)
			}

			fmt.Fprintf(a.stdout, "accepted: %s\n", stmt.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.allowWrites, "allow-writes", false, "Validate under a write-enabled policy")

	return cmd
}
