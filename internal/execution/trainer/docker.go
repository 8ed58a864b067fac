package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	units "github.com/docker/go-units"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// DockerRunner runs binaries inside a container image. Invocation.Root is
// bind-mounted at the configured work dir and the process starts in the
// matching subdirectory.
type DockerRunner struct {
	client   *client.Client
	image    string
	workDir  string
	memory   int64
	nanoCPUs int64
}

func NewDockerRunner(cfg config.DockerConfig) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	r := &DockerRunner{
		client:  cli,
		image:   cfg.Image,
		workDir: cfg.WorkDir,
	}
	if r.workDir == "" {
		r.workDir = "/job"
	}

	if cfg.MemoryLimit != "" {
		if r.memory, err = units.RAMInBytes(cfg.MemoryLimit); err != nil {
			return nil, fmt.Errorf("invalid memory limit %q: %w", cfg.MemoryLimit, err)
		}
	}
	if cfg.CPULimit != "" {
		cpus, err := strconv.ParseFloat(cfg.CPULimit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cpu limit %q: %w", cfg.CPULimit, err)
		}
		r.nanoCPUs = int64(cpus * 1e9)
	}

	return r, nil
}

// containerDir maps a host directory under root onto the mounted path.
func (r *DockerRunner) containerDir(root, dir string) (string, error) {
	if root == "" {
		root = dir
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("directory %s is outside %s", dir, root)
	}
	return path.Join(r.workDir, filepath.ToSlash(rel)), nil
}

// Ping reports the daemon version, failing when the daemon does not answer.
func (r *DockerRunner) Ping(ctx context.Context) (string, error) {
	version, err := r.client.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("docker daemon not responding: %w", err)
	}
	return fmt.Sprintf("docker %s (API %s), image %s", version.Version, version.APIVersion, r.image), nil
}

func (r *DockerRunner) pullImage(ctx context.Context) error {
	log := logger.WithComponent("trainer.docker")

	if _, _, err := r.client.ImageInspectWithRaw(ctx, r.image); err == nil {
		return nil
	}

	log.Info().Str("image", r.image).Msg("Pulling Docker image")
	reader, err := r.client.ImagePull(ctx, r.image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image '%s': %w", r.image, err)
	}
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	for {
		var pullStatus map[string]interface{}
		if err := decoder.Decode(&pullStatus); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to decode pull status: %w", err)
		}
		log.Debug().Interface("status", pullStatus).Msg("Pull status")
	}
}

func (r *DockerRunner) Run(ctx context.Context, inv Invocation) (*Output, error) {
	log := logger.WithComponent("trainer.docker")

	root := inv.Root
	if root == "" {
		root = inv.Dir
	}
	workingDir, err := r.containerDir(root, inv.Dir)
	if err != nil {
		return nil, errorutil.IO(err, "invalid working directory")
	}

	if err := r.pullImage(ctx); err != nil {
		return nil, errorutil.IO(err, "failed to prepare trainer image")
	}

	start := time.Now()
	resp, err := r.client.ContainerCreate(ctx,
		&container.Config{
			Image:      r.image,
			Entrypoint: []string{inv.Program},
			Cmd:        inv.Args,
			WorkingDir: workingDir,
		},
		&container.HostConfig{
			Binds: []string{root + ":" + r.workDir},
			Resources: container.Resources{
				Memory:   r.memory,
				NanoCPUs: r.nanoCPUs,
			},
		},
		nil, nil, "")
	if err != nil {
		return nil, errorutil.IO(err, "failed to create container")
	}
	containerID := resp.ID

	defer func() {
		// The job context may already be done; removal must still happen.
		rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.client.ContainerRemove(rmCtx, containerID, types.ContainerRemoveOptions{Force: true}); err != nil {
			log.Error().Err(err).Str("containerID", containerID).Msg("failed to remove container")
		}
	}()

	if err := r.client.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		return nil, errorutil.IO(err, "failed to start container")
	}

	out := &Output{}
	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			out.ExitCode = -1
			out.Duration = time.Since(start)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			return nil, errorutil.IO(err, "error waiting for container")
		}
	case status := <-statusCh:
		out.ExitCode = int(status.StatusCode)
	}
	out.Duration = time.Since(start)

	logs, err := r.client.ContainerLogs(ctx, containerID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, errorutil.IO(err, "failed to get container logs")
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, errorutil.IO(err, "failed to read container logs")
	}
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	log.Debug().
		Str("containerID", containerID).
		Int("exit_code", out.ExitCode).
		Dur("duration", out.Duration).
		Msg("Container finished")
	return out, nil
}
