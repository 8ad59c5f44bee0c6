package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/PipeOpsHQ/agent-kickoff/flow"
	"github.com/PipeOpsHQ/agent-kickoff/internal/server"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (GET /kickoff)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("metrics") {
				a.cfg.MetricsEnabled, _ = cmd.Flags().GetBool("metrics")
			}
			if cmd.Flags().Changed("otel") {
				a.cfg.OTelEnabled, _ = cmd.Flags().GetBool("otel")
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (env KICKOFF_ADDR, default :8000)")
	cmd.Flags().Bool("metrics", true, "serve Prometheus metrics at /metrics (env KICKOFF_METRICS_ENABLED)")
	cmd.Flags().Bool("otel", false, "export traces over OTLP/gRPC (env KICKOFF_OTEL_ENABLED)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := a.resolveProvider(ctx)
	if err != nil {
		return err
	}
	obs, err := a.setupObservability(ctx, a.cfg.MetricsEnabled)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	switch a.cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(a.cfg.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	opts := []server.Option{server.WithLogger(a.logger), server.WithSink(obs.sink)}
	if obs.registry != nil {
		opts = append(opts, server.WithMetrics(obs.registry))
	}
	srv, err := server.New(server.Config{
		Addr:        a.cfg.Addr,
		StepTimeout: a.cfg.StepTimeout,
		CORSOrigins: a.cfg.CORSOrigins,
		Version:     Version,
	}, provider, opts...)
	if err != nil {
		return err
	}

	a.logger.Info("starting kickoff server", "addr", a.cfg.Addr, "flows", flow.Names(), "model", a.cfg.Model)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
