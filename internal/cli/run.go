package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/PipeOpsHQ/agent-kickoff/flow"
	"github.com/PipeOpsHQ/agent-kickoff/internal/server"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

func (a *app) newRunCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run [flow]",
		Short: "Run a flow once and print the result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := flow.DefaultName
			if len(args) == 1 {
				name = args[0]
			}
			return a.runOnce(cmd, name, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the full run record instead of {agent_id, message}")
	return cmd
}

func (a *app) runOnce(cmd *cobra.Command, name string, verbose bool) error {
	ctx := cmd.Context()
	def, err := flow.Lookup(name)
	if err != nil {
		return err
	}
	provider, err := a.resolveProvider(ctx)
	if err != nil {
		return err
	}
	obs, err := a.setupObservability(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.shutdown(shutdownCtx)
	}()

	runner, err := def.NewRunner(provider,
		workflow.WithStepTimeout(a.cfg.StepTimeout),
		workflow.WithSink(obs.sink),
	)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if verbose {
		enc.SetIndent("", "  ")
		return enc.Encode(runner.Result())
	}
	state := runner.State()
	return enc.Encode(server.KickoffResponse{AgentID: state.ID(), Message: state.Message()})
}
