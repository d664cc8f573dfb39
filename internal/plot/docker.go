package plot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
)

const (
	containerWorkDir = "/work"
	memoryLimitBytes = 512 * 1024 * 1024
	cpuQuota         = 50000
	pidsLimit        = 64
)

type DockerConfig struct {
	Image   string
	Timeout time.Duration
	// WorkDir must be visible to the Docker daemon at the same path.
	WorkDir string
}

// dockerAPI is the subset of the Docker client the runner uses.
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Ping(ctx context.Context) (types.Ping, error)
}

// DockerRunner renders each snippet in a fresh container with networking
// disabled, a read-only root filesystem and tight resource limits.
type DockerRunner struct {
	cli    dockerAPI
	cfg    DockerConfig
	logger *slog.Logger
}

func NewDockerRunner(cfg DockerConfig, logger *slog.Logger) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newDockerRunner(cli, cfg, logger), nil
}

func newDockerRunner(cli dockerAPI, cfg DockerConfig, logger *slog.Logger) *DockerRunner {
	if cfg.Image == "" {
		cfg.Image = "analyzer-plot:latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &DockerRunner{cli: cli, cfg: cfg, logger: logger}
}

func (r *DockerRunner) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker daemon: %w", err)
	}
	return nil
}

func (r *DockerRunner) Run(ctx context.Context, code ValidatedCode, frame []byte) (Image, error) {
	dir, err := prepareWorkspace(r.cfg.WorkDir, code, frame)
	if err != nil {
		return Image{}, err
	}
	defer func() { _ = os.RemoveAll(dir) }()
	// The container user is unknown on the host; let it write the output.
	if err := os.Chmod(dir, 0o777); err != nil {
		return Image{}, fmt.Errorf("open plot workspace: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	config := &container.Config{
		Image:           r.cfg.Image,
		WorkingDir:      containerWorkDir,
		NetworkDisabled: true,
		Env:             []string{"MPLBACKEND=Agg", "MPLCONFIGDIR=/tmp", "HOME=/tmp"},
		Cmd: []string{"python3", "-I",
			path.Join(containerWorkDir, scriptFile),
			path.Join(containerWorkDir, snippetFile),
			path.Join(containerWorkDir, frameFile),
			path.Join(containerWorkDir, outputFile),
		},
	}
	hostConfig := &container.HostConfig{
		NetworkMode:    container.NetworkMode("none"),
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Tmpfs:          map[string]string{"/tmp": "rw,size=64m"},
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: dir,
			Target: containerWorkDir,
		}},
		Resources: container.Resources{
			Memory:    memoryLimitBytes,
			CPUQuota:  cpuQuota,
			PidsLimit: ptr(int64(pidsLimit)),
		},
	}

	start := time.Now()
	resp, err := r.cli.ContainerCreate(runCtx, config, hostConfig, nil, nil, "")
	if err != nil {
		return Image{}, fmt.Errorf("%w: create container: %v", ErrExecution, err)
	}
	defer r.remove(resp.ID)

	if err := r.cli.ContainerStart(runCtx, resp.ID, container.StartOptions{}); err != nil {
		return Image{}, fmt.Errorf("%w: start container: %v", ErrExecution, err)
	}

	statusCh, errCh := r.cli.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if runCtx.Err() != nil {
			return Image{}, fmt.Errorf("%w: timed out after %s", ErrExecution, r.cfg.Timeout)
		}
		return Image{}, fmt.Errorf("%w: wait for container: %v", ErrExecution, err)
	case status := <-statusCh:
		if status.StatusCode != 0 {
			detail := r.stderr(ctx, resp.ID)
			if detail == "" {
				detail = fmt.Sprintf("exit status %d", status.StatusCode)
			}
			r.logger.WarnContext(ctx, "plot container failed", append(observability.LogAttrs(ctx), "container_id", resp.ID, "error", detail)...)
			return Image{}, fmt.Errorf("%w: %s", ErrExecution, detail)
		}
	}

	r.logger.DebugContext(ctx, "plot rendered", append(observability.LogAttrs(ctx), "runner", "docker", "duration_ms", time.Since(start).Milliseconds())...)
	return readOutput(dir)
}

func (r *DockerRunner) stderr(ctx context.Context, containerID string) string {
	logs, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStderr: true})
	if err != nil {
		return ""
	}
	defer func() { _ = logs.Close() }()
	var stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(io.Discard, &stderr, logs); err != nil {
		return ""
	}
	return lastLine(stderr.String())
}

func (r *DockerRunner) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		r.logger.Warn("failed to remove plot container", "container_id", containerID, "error", err)
	}
}

func ptr[T any](v T) *T { return &v }
