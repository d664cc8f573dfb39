package plot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
)

type ProcessConfig struct {
	Python  string
	Timeout time.Duration
	// WorkDir is the parent of per-render workspaces; empty uses os.TempDir.
	WorkDir string
}

// ProcessRunner renders in a fresh interpreter with isolated mode, a scrubbed
// environment and a throwaway working directory.
type ProcessRunner struct {
	cfg    ProcessConfig
	logger *slog.Logger
}

func NewProcessRunner(cfg ProcessConfig, logger *slog.Logger) *ProcessRunner {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ProcessRunner{cfg: cfg, logger: logger}
}

func (r *ProcessRunner) Run(ctx context.Context, code ValidatedCode, frame []byte) (Image, error) {
	dir, err := prepareWorkspace(r.cfg.WorkDir, code, frame)
	if err != nil {
		return Image{}, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.cfg.Python, "-I",
		filepath.Join(dir, scriptFile),
		filepath.Join(dir, snippetFile),
		filepath.Join(dir, frameFile),
		filepath.Join(dir, outputFile),
	)
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"MPLBACKEND=Agg",
		"MPLCONFIGDIR=" + dir,
		"PYTHONDONTWRITEBYTECODE=1",
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Image{}, fmt.Errorf("%w: timed out after %s", ErrExecution, r.cfg.Timeout)
		}
		detail := err.Error()
		if stderr.Len() > 0 {
			detail = lastLine(stderr.String())
		}
		r.logger.WarnContext(ctx, "plot process failed", append(observability.LogAttrs(ctx), "error", detail)...)
		return Image{}, fmt.Errorf("%w: %s", ErrExecution, detail)
	}
	r.logger.DebugContext(ctx, "plot rendered", append(observability.LogAttrs(ctx), "runner", "process", "duration_ms", time.Since(start).Milliseconds())...)
	return readOutput(dir)
}
