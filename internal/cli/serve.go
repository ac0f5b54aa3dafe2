package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/policyvoice/corroborate/internal/logging"
	"github.com/policyvoice/corroborate/internal/pipeline"
	"github.com/policyvoice/corroborate/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Serve exposes verification over HTTP:

  POST /v1/verify     verify one story
  POST /v1/route      explain adapter selection
  GET  /v1/adapters   list adapters
  GET  /v1/quotas     remaining quota per account
  GET  /healthz       liveness
  GET  /metrics       Prometheus metrics

Example:
  corroborate serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(p, p.Gatherer(), cfg.Server, logger).Run(ctx)
}
