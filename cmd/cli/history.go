package cli

import (
	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/history"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "history",
		Short: "List the server's succeeded training runs",
		Args:  cobra.NoArgs,
		Flags: map[string]cliutil.Flag{
			"limit": {Type: cliutil.FlagTypeInt, DefaultInt: 20, Description: "Number of recent jobs to fetch"},
		},
		RunFunc: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			jobs, err := c.ListJobs(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			newPrinter(cmd.OutOrStdout()).history(ledgerFromJobs(jobs).Render())
			return nil
		},
	}, logger.WithComponent("cli"))
}

// ledgerFromJobs replays succeeded jobs, oldest first.
func ledgerFromJobs(jobs []*models.TrainingJob) *history.Ledger {
	ledger := history.NewLedger()
	for i := len(jobs) - 1; i >= 0; i-- {
		job := jobs[i]
		if job.Status != models.JobStatusSucceeded {
			continue
		}
		alg, ok := models.ParseAlgorithm(job.Algorithm)
		if !ok {
			alg = models.Algorithm(job.Algorithm)
		}
		ts := job.CreatedAt
		if job.CompletedAt != nil {
			ts = *job.CompletedAt
		}
		ledger.RecordAt(ts, alg, job.Parameters, job.Metrics)
	}
	return ledger
}
