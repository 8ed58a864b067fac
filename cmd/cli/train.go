package cli

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/tinyml-runner/internal/utils/cliutil"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/internal/workbench"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func newTrainCommand(opts *rootOptions) *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "train <dataset>",
		Short: "Train a model on a CSV or JSON dataset",
		Example: `  tinyml train housing.csv --algorithm linear-regression -p learning_rate=0.05
  tinyml train iris.csv --algorithm knn -p k=3 --interactive`,
		Args: cobra.ExactArgs(1),
		Flags: map[string]cliutil.Flag{
			"algorithm":   {Type: cliutil.FlagTypeString, Shorthand: "a", Required: true, Description: "Algorithm identifier"},
			"param":       {Type: cliutil.FlagTypeStringArray, Shorthand: "p", Description: "Parameter as key=value, repeatable"},
			"image":       {Type: cliutil.FlagTypeString, Description: "Write the trainer's image artifact to this path"},
			"interactive": {Type: cliutil.FlagTypeBool, Shorthand: "i", Description: "Keep the session open for predictions and history"},
		},
		RunFunc: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			w := workbench.New(c)
			p := newPrinter(cmd.OutOrStdout())

			content, err := readDatasetFile(args[0])
			if err != nil {
				return err
			}
			if _, err := w.LoadDataset(args[0], content); err != nil {
				return err
			}

			alg, _ := cmd.Flags().GetString("algorithm")
			if err := w.SelectAlgorithm(alg); err != nil {
				return err
			}
			if err := applyParams(cmd, w); err != nil {
				return err
			}

			if err := trainOnce(cmd, w, p); err != nil {
				return err
			}

			if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
				return runSession(cmd, w, p, cmd.InOrStdin())
			}
			return nil
		},
	}, logger.WithComponent("cli"))
}

func applyParams(cmd *cobra.Command, w *workbench.Workbench) error {
	pairs, _ := cmd.Flags().GetStringArray("param")
	params, err := cliutil.ParseKeyValues(pairs)
	if err != nil {
		return err
	}
	for key, raw := range params {
		if err := w.SetParameter(key, paramValue(raw)); err != nil {
			return err
		}
	}
	return nil
}

// paramValue keeps numbers numeric so range checks apply.
func paramValue(raw string) interface{} {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func trainOnce(cmd *cobra.Command, w *workbench.Workbench, p *printer) error {
	result, err := w.Train(cmd.Context())
	if err != nil {
		return err
	}

	p.success("Training completed (job " + result.JobID + ")")
	p.parameters(result.Parameters)
	p.metrics(result.View)

	path, _ := cmd.Flags().GetString("image")
	if path != "" && result.Image != "" {
		data, err := base64.StdEncoding.DecodeString(result.Image)
		if err != nil {
			return errorutil.Parse(err, "failed to decode image")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errorutil.IO(err, "failed to write image")
		}
		p.success("Image written to " + path)
	}
	return nil
}

const sessionHelp = `Commands:
  <v1>, <v2>, ...   predict with feature values in input order
  inputs            list the prediction inputs
  history           list training runs of this session
  show <n>          redisplay history entry n
  train             train again with the same settings
  set <key>=<value> change a parameter
  quit              leave the session
`

// runSession reads commands from in until EOF or quit.
func runSession(cmd *cobra.Command, w *workbench.Workbench, p *printer, in io.Reader) error {
	inputs, err := w.PredictionInputs()
	if err != nil {
		return err
	}
	p.inputs(inputs)
	p.printf("\n%s", sessionHelp)

	scanner := bufio.NewScanner(in)
	for {
		p.printf("%s", p.yellow("\ntinyml> "))
		if !scanner.Scan() {
			p.printf("\n")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return nil
		case "help":
			p.printf("%s", sessionHelp)
		case "inputs":
			inputs, _ = w.PredictionInputs()
			p.inputs(inputs)
		case "history":
			p.history(w.History())
		case "show":
			if len(fields) != 2 {
				p.failure(fmt.Errorf("usage: show <n>"))
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				p.failure(fmt.Errorf("invalid entry number %q", fields[1]))
				continue
			}
			result, err := w.ShowHistory(n - 1)
			if err != nil {
				p.failure(err)
				continue
			}
			p.parameters(result.Parameters)
			p.metrics(result.View)
		case "train":
			if err := trainOnce(cmd, w, p); err != nil {
				p.failure(err)
				continue
			}
			inputs, _ = w.PredictionInputs()
		case "set":
			params, err := cliutil.ParseKeyValues(fields[1:])
			if err == nil {
				for key, raw := range params {
					if err = w.SetParameter(key, paramValue(raw)); err != nil {
						break
					}
				}
			}
			if err != nil {
				p.failure(err)
			}
		default:
			values := splitFeatures(line)
			features := make(map[string]string, len(inputs))
			for i, input := range inputs {
				if i < len(values) {
					features[input.Column] = values[i]
				}
			}
			v, err := w.Predict(cmd.Context(), features)
			if err != nil {
				p.failure(err)
				continue
			}
			p.prediction(v)
		}
	}
}

func splitFeatures(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
