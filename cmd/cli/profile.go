package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/dataset"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newProfileCommand() *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "profile <file>",
		Short: "Profile a CSV or JSON dataset",
		Args:  cobra.ExactArgs(1),
		Flags: map[string]cliutil.Flag{
			"rows": {Type: cliutil.FlagTypeInt, DefaultInt: dataset.SampleSize, Description: "Number of preview rows"},
		},
		RunFunc: func(cmd *cobra.Command, args []string) error {
			prof, err := readDataset(args[0])
			if err != nil {
				return err
			}
			rows, _ := cmd.Flags().GetInt("rows")
			newPrinter(cmd.OutOrStdout()).profile(prof, dataset.Analyze(prof), rows)
			return nil
		},
	}, logger.WithComponent("cli"))
}

func readDatasetFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errorutil.IO(err, "failed to read dataset")
	}
	return string(data), nil
}

func readDataset(path string) (*dataset.Profile, error) {
	content, err := readDatasetFile(path)
	if err != nil {
		return nil, err
	}
	return dataset.Parse(content, dataset.Extension(path))
}
