// Package cli provides the command-line interface for the query agent.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	queryagent "github.com/felixgeelhaar/queryagent"
	"github.com/felixgeelhaar/queryagent/application"
	"github.com/felixgeelhaar/queryagent/domain/cache"
	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/infrastructure/audit"
	"github.com/felixgeelhaar/queryagent/infrastructure/config"
	"github.com/felixgeelhaar/queryagent/infrastructure/executor"
	"github.com/felixgeelhaar/queryagent/infrastructure/llm"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
	"github.com/felixgeelhaar/queryagent/infrastructure/prompt"
	"github.com/felixgeelhaar/queryagent/infrastructure/resilience"
	"github.com/felixgeelhaar/queryagent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/queryagent/infrastructure/storage/redis"
	"github.com/felixgeelhaar/queryagent/infrastructure/telemetry"
)

// Version information set at build time.
var (
	Version   = queryagent.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "queryagent",
		Short: "Natural-language to SQL agent with a read-only safety guard",
		Long: `queryagent translates natural-language questions into SQL against a
configured PostgreSQL database. Every statement, whether produced by the
one-shot translator or inside the reasoning loop, passes a lexical safety
guard before it reaches the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to the JSON configuration file")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	app.root.PersistentFlags().StringVar(&app.logFormat, "log-format", "", "Log format (console, json)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newAskCmd(),
		app.newSchemaCmd(),
		app.newValidateCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "queryagent version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}

// loadConfig reads the configuration and applies the logging flags.
func (a *App) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}

	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: a.stderr,
	})

	return cfg, nil
}

// runtime bundles the wired collaborators for database-facing commands.
type runtime struct {
	cfg      config.Config
	provider llm.Provider
	pool     *pgxpool.Pool
	exec     executor.Executor
	cache    cache.Cache
	auditor  audit.Logger
	tracing  *telemetry.Provider

	// policySource yields the guard policy for each new request. It is
	// backed by the config watcher when a config file is in use.
	policySource func() query.Policy
}

// buildRuntime wires the collaborators from the configuration.
func (a *App) buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database_dsn is required (config file or QUERYAGENT_DATABASE_DSN)")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var schemaCache cache.Cache
	if cfg.RedisAddress != "" {
		rc, err := redis.NewCache(redis.Config{Address: cfg.RedisAddress})
		if err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("redis unavailable, using in-memory schema cache")
			schemaCache = memory.NewCache()
		} else {
			schemaCache = rc
		}
	} else {
		schemaCache = memory.NewCache()
	}

	var auditor audit.Logger = audit.Nop{}
	if cfg.AuditPath != "" {
		sl, err := audit.NewSQLiteLogger(cfg.AuditPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		auditor = sl
	}

	tracing, err := telemetry.NewProvider(telemetry.ProviderConfig{
		ServiceName:    "queryagent",
		ServiceVersion: Version,
		Enabled:        cfg.TraceEnabled,
	})
	if err != nil {
		_ = auditor.Close()
		pool.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	return &runtime{
		cfg:          cfg,
		provider:     provider,
		pool:         pool,
		exec:         executor.NewPostgres(pool, ""),
		cache:        schemaCache,
		auditor:      auditor,
		tracing:      tracing,
		policySource: cfg.Policy,
	}, nil
}

// Close releases the runtime resources.
func (r *runtime) Close() {
	_ = r.tracing.Shutdown(context.Background())
	_ = r.auditor.Close()
	r.pool.Close()
}

// newOrchestrator assembles the orchestrator over an introspected schema.
func (r *runtime) newOrchestrator(ctx context.Context) (*application.Orchestrator, error) {
	schemaText, err := renderSchema(ctx, r.exec)
	if err != nil {
		return nil, fmt.Errorf("introspecting schema: %w", err)
	}

	metrics, err := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
	if err != nil {
		return nil, err
	}

	return application.NewOrchestrator(application.OrchestratorConfig{
		Provider:      r.provider,
		Builder:       prompt.NewBuilder(schemaText),
		Executor:      r.exec,
		Model:         r.cfg.Model,
		AgentEnabled:  r.cfg.AgentEnabled,
		MaxIterations: r.cfg.MaxIterations,
		SafeStatement: r.cfg.SafeStatement,
		Auditor:       r.auditor,
		Metrics:       metrics,
		Cache:         r.cache,
		PolicySource:  r.policySource,
	})
}

// newProvider constructs the configured model backend wrapped in the
// resilience layer.
func newProvider(cfg config.Config) (llm.Provider, error) {
	var inner llm.Provider
	switch cfg.Provider {
	case "openai":
		inner = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	case "ollama":
		inner = llm.NewOllamaProvider(llm.OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	return resilience.NewProvider(inner, resilience.DefaultConfig()), nil
}
