package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/api/middleware"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "token",
		Short: "Issue an API bearer token signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		Flags: map[string]cliutil.Flag{
			"subject": {Type: cliutil.FlagTypeString, DefaultString: "cli", Description: "Token subject"},
		},
		RunFunc: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}

			subject, _ := cmd.Flags().GetString("subject")
			token, err := middleware.SignToken(cfg.Auth.JWTSecret, subject)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}, logger.WithComponent("cli"))
}
