package trainer

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// ProcessRunner runs binaries directly on the host.
type ProcessRunner struct{}

func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{}
}

// ResolveProgram makes path-like program names absolute so they survive the
// change of working directory. Bare names are looked up on PATH.
func ResolveProgram(program string) (string, error) {
	if !strings.ContainsRune(program, filepath.Separator) && !strings.ContainsRune(program, '/') {
		return exec.LookPath(program)
	}
	return filepath.Abs(program)
}

func (r *ProcessRunner) Run(ctx context.Context, inv Invocation) (*Output, error) {
	log := logger.WithComponent("trainer.process")

	program, err := ResolveProgram(inv.Program)
	if err != nil {
		return nil, errorutil.IO(err, "failed to resolve %s", inv.Program)
	}

	cmd := exec.CommandContext(ctx, program, inv.Args...)
	cmd.Dir = inv.Dir
	// Children that inherit the output pipes must not hold Run open after a kill.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("program", program).Strs("args", inv.Args).Str("dir", inv.Dir).Msg("Starting process")

	start := time.Now()
	err = cmd.Run()
	out := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.ExitCode = -1
			return out, ctxErr
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errorutil.IO(err, "failed to start %s", inv.Program)
		}
		out.ExitCode = exitErr.ExitCode()
	}

	log.Debug().
		Int("exit_code", out.ExitCode).
		Dur("duration", out.Duration).
		Int("stderr_bytes", len(out.Stderr)).
		Msg("Process finished")
	return out, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
