package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/client"
	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

type rootOptions struct {
	logMode    string
	configPath string
	serverURL  string
	token      string
}

// NewRootCommand builds the tinyml command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tinyml",
		Short: "TinyML training runner",
		Long:  `Dispatches training jobs to an external trainer, normalizes their metrics and serves predictions`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch opts.logMode {
			case "debug", "pretty", "info", "prod", "test":
				logger.InitWithMode(logger.LogMode(opts.logMode))
			default:
				logger.InitWithMode(logger.LogModePretty)
			}
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logMode, "log", "pretty", "Log mode: debug, pretty, info, prod, test")
	flags.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to the configuration file")
	flags.StringVar(&opts.serverURL, "server", "", "API base URL (overrides client.server_url)")
	flags.StringVar(&opts.token, "token", "", "Bearer token for the API (overrides client.token)")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newTokenCommand(opts),
		newParamsCommand(),
		newProfileCommand(),
		newTrainCommand(opts),
		newPredictCommand(opts),
		newHistoryCommand(opts),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.LoadConfig(o.configPath)
}

func (o *rootOptions) newClient() (*client.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.serverURL != "" {
		cfg.Client.ServerURL = o.serverURL
	}
	token := cfg.Client.Token
	if o.token != "" {
		token = o.token
	}
	return client.New(cfg.Client, token), nil
}
