// Package cli implements the kickoff command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PipeOpsHQ/agent-kickoff/flow"
	"github.com/PipeOpsHQ/agent-kickoff/internal/config"
	"github.com/PipeOpsHQ/agent-kickoff/internal/logging"
	"github.com/PipeOpsHQ/agent-kickoff/llm"
	"github.com/PipeOpsHQ/agent-kickoff/providers/factory"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

// Version is stamped at build time with -ldflags.
var Version = "1.0.0"

type app struct {
	cfg      config.Config
	modelSet bool
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	provider llm.Provider
}

type Option func(*app)

// WithProvider bypasses the provider router. Used by tests.
func WithProvider(p llm.Provider) Option {
	return func(a *app) { a.provider = p }
}

func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *app) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewRootCommand builds the kickoff command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "kickoff",
		Short:         "Run single-step LLM flows from the command line or over HTTP",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bootstrap(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("model", "", "model for the simple flow, e.g. gemini/gemini-1.5-flash (env KICKOFF_MODEL)")
	pf.String("flows", "", "YAML file with extra flow definitions (env KICKOFF_FLOWS_FILE)")
	pf.Duration("step-timeout", 0, "bound on the provider call (env KICKOFF_STEP_TIMEOUT)")
	pf.String("log-level", "", "debug, info, warn or error (env KICKOFF_LOG_LEVEL)")
	pf.String("log-format", "", "text or json (env KICKOFF_LOG_FORMAT)")

	root.AddCommand(a.newServeCommand(), a.newRunCommand(), a.newFlowsCommand())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) bootstrap(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.modelSet = strings.TrimSpace(os.Getenv("KICKOFF_MODEL")) != ""

	flags := cmd.Flags()
	if flags.Changed("model") {
		a.cfg.Model, _ = flags.GetString("model")
		a.modelSet = true
	}
	if flags.Changed("flows") {
		a.cfg.FlowsFile, _ = flags.GetString("flows")
	}
	if flags.Changed("step-timeout") {
		a.cfg.StepTimeout, _ = flags.GetDuration("step-timeout")
	}
	if flags.Changed("log-level") {
		a.cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		a.cfg.LogFormat, _ = flags.GetString("log-format")
	}

	a.logger = logging.NewWithWriter(a.stderr, a.cfg.LogLevel, a.cfg.LogFormat)
	slog.SetDefault(a.logger)
	return a.registerFlows()
}

// registerFlows registers the flows file, then the simple flow unless the
// file defines it. An explicit model (--model or KICKOFF_MODEL) applies to
// the simple flow wherever it comes from.
func (a *app) registerFlows() error {
	if a.cfg.FlowsFile != "" {
		defs, err := flow.LoadFile(a.cfg.FlowsFile)
		if err != nil {
			return err
		}
		for _, def := range defs {
			if def.Name == flow.DefaultName && a.modelSet {
				def.Model = a.cfg.Model
			}
			if err := flow.Register(def); err != nil {
				return err
			}
		}
		a.logger.Debug("flows loaded", "file", a.cfg.FlowsFile, "count", len(defs))
	}
	if _, ok := flow.Get(flow.DefaultName); !ok {
		simple := flow.Simple()
		simple.Model = a.cfg.Model
		if err := flow.Register(simple); err != nil {
			return err
		}
	}
	flow.RegisterBuiltins()
	return nil
}

// resolveProvider returns the provider used for every run. Each registered
// flow's backend is built up front so missing credentials fail here rather
// than on the first request.
func (a *app) resolveProvider(ctx context.Context) (llm.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	router := factory.NewRouter(a.cfg.Providers)
	for _, def := range flow.All() {
		model := def.Model
		if model == "" {
			model = workflow.DefaultModel
		}
		if _, _, err := router.Resolve(ctx, model); err != nil {
			return nil, fmt.Errorf("flow %q: %w", def.Name, err)
		}
	}
	return router, nil
}
