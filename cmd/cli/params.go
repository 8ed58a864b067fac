package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/catalog"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newParamsCommand() *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:     "params [algorithm]",
		Short:   "List algorithms or show the parameters of one",
		Example: "  tinyml params knn",
		Args:    cobra.MaximumNArgs(1),
		RunFunc: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout())
			if len(args) == 0 {
				p.algorithms()
				return nil
			}

			alg, ok := models.ParseAlgorithm(args[0])
			if !ok {
				return fmt.Errorf("unsupported algorithm: %s", args[0])
			}
			specs, _ := catalog.Schema(alg)
			p.params(alg, specs)
			return nil
		},
	}, logger.WithComponent("cli"))
}
