package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/prediction"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newPredictCommand(opts *rootOptions) *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:     "predict",
		Short:   "Predict one row with a trained model",
		Example: "  tinyml predict --dataset iris.csv --algorithm knn -f sepal_length=5.1 -f sepal_width=3.5 --k 3",
		Args:    cobra.NoArgs,
		Flags: map[string]cliutil.Flag{
			"dataset":   {Type: cliutil.FlagTypeString, Shorthand: "d", Required: true, Description: "Dataset the model was trained on, used for input types"},
			"algorithm": {Type: cliutil.FlagTypeString, Shorthand: "a", Required: true, Description: "Algorithm identifier"},
			"feature":   {Type: cliutil.FlagTypeStringArray, Shorthand: "f", Description: "Feature as column=value, repeatable"},
			"k":         {Type: cliutil.FlagTypeInt, DefaultInt: prediction.DefaultK, Description: "k for knn and k-means"},
			"job":       {Type: cliutil.FlagTypeString, Description: "Job whose weights are used (default: latest for the algorithm)"},
		},
		RunFunc: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("dataset")
			prof, err := readDataset(path)
			if err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("algorithm")
			alg, ok := models.ParseAlgorithm(name)
			if !ok {
				return fmt.Errorf("unsupported algorithm: %s", name)
			}

			pairs, _ := cmd.Flags().GetStringArray("feature")
			values, err := cliutil.ParseKeyValues(pairs)
			if err != nil {
				return err
			}

			k, _ := cmd.Flags().GetInt("k")
			builder := prediction.NewBuilder(prof, alg, models.Parameters{"k": k})
			req, err := builder.Build(values)
			if err != nil {
				return err
			}
			req.JobID, _ = cmd.Flags().GetString("job")

			c, err := opts.newClient()
			if err != nil {
				return err
			}
			resp, err := c.Predict(cmd.Context(), req)
			if err != nil {
				return err
			}
			v, err := prediction.ExtractPrediction(resp)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).prediction(v)
			return nil
		},
	}, logger.WithComponent("cli"))
}
