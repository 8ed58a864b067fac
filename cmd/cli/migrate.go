package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/database"
	"github.com/theblitlabs/tinyml-runner/internal/database/migrations"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back the job table migrations",
		Args:  cobra.MaximumNArgs(1),
		RunFunc: func(cmd *cobra.Command, args []string) error {
			direction := migrations.Up
			if len(args) == 1 {
				switch args[0] {
				case "up":
				case "down":
					direction = migrations.Down
				default:
					return fmt.Errorf("unknown migration direction %q", args[0])
				}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := database.Connect(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(ctx, db, direction); err != nil {
				return err
			}
			log := logger.WithComponent("cli")
			log.Info().Str("direction", string(direction)).Msg("Migrations applied")
			return nil
		},
	}, logger.WithComponent("cli"))
}
