package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/queryagent/application"
	"github.com/felixgeelhaar/queryagent/infrastructure/config"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
)

// askOptions holds options for the ask command.
type askOptions struct {
	mode       string
	jsonOutput bool
}

// newAskCmd creates the ask command.
func (a *App) newAskCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Translate a question into SQL and run it",
		Long: `Translate a natural-language question into SQL against the configured
database and print the result.

Direct mode performs one model exchange. Agent mode lets the model inspect
the schema and run queries iteratively before answering.

Examples:
  queryagent ask -c config.json "count all contacts"
  queryagent ask -c config.json --mode agent "which contact has the most open cases?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(application.ModeDirect), "Translation mode (direct or agent)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full outcome as JSON")

	return cmd
}

func (a *App) runAsk(cmd *cobra.Command, question string, opts *askOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := a.buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	defer a.watchPolicy(rt)()

	orchestrator, err := rt.newOrchestrator(ctx)
	if err != nil {
		return err
	}

	outcome, err := orchestrator.Process(ctx, question, application.Mode(opts.mode))
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}

	return a.printOutcome(outcome)
}

// watchPolicy points the runtime policy source at a config watcher when a
// config file is in play, so policy changes on disk take effect on the next
// request. The returned cleanup stops the watcher. A watcher failure keeps
// the static policy and is logged.
func (a *App) watchPolicy(rt *runtime) func() {
	if a.configPath == "" {
		return func() {}
	}

	watcher, err := config.NewWatcher(a.configPath)
	if err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("config watcher unavailable, policy will not hot-reload")
		return func() {}
	}

	rt.policySource = watcher.Policy
	return func() { _ = watcher.Close() }
}

func (a *App) printOutcome(outcome application.Outcome) error {
	switch outcome.Kind {
	case application.OutcomeDirect:
		res := outcome.Direct
		fmt.Fprintf(a.stdout, "SQL: %s\n", res.Statement.Text)
		printRows(a.stdout, res.Rows)

	case application.OutcomeAgent:
		res := outcome.Agent
		if res.Answer != "" {
			fmt.Fprintf(a.stdout, "Answer: %s\n", res.Answer)
		}
		for _, sql := range res.SQL {
			fmt.Fprintf(a.stdout, "SQL: %s\n", sql)
		}
		printRows(a.stdout, res.Rows)
		fmt.Fprintf(a.stdout, "Iterations: %d  Success: %v\n", res.Iterations, res.Success)
		if !res.Success && res.Trace != nil {
			fmt.Fprintf(a.stdout, "Terminal: %s\n", res.Trace.Terminal)
		}

	default:
		return fmt.Errorf("unexpected outcome kind %q", outcome.Kind)
	}
	return nil
}
