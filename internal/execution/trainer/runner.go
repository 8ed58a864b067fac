package trainer

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/models"
)

// Invocation is one run of the trainer or predictor binary. Args are passed
// as an argument list, never through a shell.
type Invocation struct {
	Program string
	Args    []string
	// Dir is the host working directory of the run.
	Dir string
	// Root is the host directory exposed to the run. Dir must be inside it.
	Root string
}

type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Failed reports whether the run counts as failed: a non-zero exit or any
// standard-error output.
func (o *Output) Failed() bool {
	return o.ExitCode != 0 || strings.TrimSpace(o.Stderr) != ""
}

// Reason is the text surfaced to the caller for a failed run. Standard
// error is returned as captured.
func (o *Output) Reason() string {
	if strings.TrimSpace(o.Stderr) != "" {
		return o.Stderr
	}
	if s := strings.TrimSpace(o.Stdout); s != "" {
		return s
	}
	return "process exited with code " + itoa(o.ExitCode)
}

// Runner executes an invocation to completion. A non-zero exit is reported
// through Output, not as an error; errors mean the run could not happen.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Output, error)
}

// BuildArgs assembles the trainer argument list:
//
//	--model <name> --parameters "k1=v1,k2=v2" [<dataset flag> <path>]
//
// In inline mode the dataset is the first pair of the parameter string.
func BuildArgs(cfg config.TrainerConfig, alg string, params models.Parameters, datasetPath string) []string {
	pairs := params.Flatten(cfg.ParameterAliases)

	if cfg.DatasetMode != config.DatasetModeFlag {
		inline := "dataset=" + datasetPath
		if pairs != "" {
			inline += "," + pairs
		}
		pairs = inline
	}

	args := []string{"--model", models.TrainerModelName(alg), "--parameters", pairs}

	if cfg.DatasetMode == config.DatasetModeFlag {
		flag := cfg.DatasetFlag
		if flag == "" {
			flag = "--dataset"
		}
		args = append(args, flag, datasetPath)
	}
	return args
}

// PredictArgs assembles the predictor argument list.
func PredictArgs(alg string, weightsPath, featuresPath string, k *int) []string {
	args := []string{
		"--model", models.TrainerModelName(alg),
		"--weights", weightsPath,
		"--features", featuresPath,
	}
	if k != nil {
		args = append(args, "--kvalue", itoa(*k))
	}
	return args
}

// RelativeTo expresses path relative to dir so the same argument works on
// the host and inside a container that mounts the job directory.
func RelativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}

// New returns the runner selected by the trainer runtime.
func New(cfg config.TrainerConfig) (Runner, error) {
	if cfg.Runtime == config.RuntimeDocker {
		return NewDockerRunner(cfg.Docker)
	}
	return NewProcessRunner(), nil
}
