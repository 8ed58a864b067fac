package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/server"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "serve",
		Short: "Start the training API server",
		Args:  cobra.NoArgs,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			log := logger.WithComponent("cli")

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			addr := server.Addr(cfg.Server)
			if err := server.VerifyPortAvailable(addr); err != nil {
				log.Error().Err(err).Str("addr", addr).Msg("Server port is not available")
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize server")
				return err
			}

			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Server stopped with error")
				return err
			}
			log.Info().Msg("Shutdown complete")
			return nil
		},
	}, logger.WithComponent("cli"))
}
