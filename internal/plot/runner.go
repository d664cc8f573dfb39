package plot

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed runner.py
var runnerScript []byte

const (
	scriptFile  = "runner.py"
	snippetFile = "snippet.py"
	frameFile   = "frame.parquet"
	outputFile  = "out.png"
)

var ErrRunnerDisabled = errors.New("plot rendering is disabled")

type Image struct {
	Data        []byte
	ContentType string
}

// Runner executes validated code against a parquet-encoded frame and returns
// the rendered chart. Nothing survives between calls.
type Runner interface {
	Run(ctx context.Context, code ValidatedCode, frame []byte) (Image, error)
}

type DisabledRunner struct{}

func (DisabledRunner) Run(context.Context, ValidatedCode, []byte) (Image, error) {
	return Image{}, ErrRunnerDisabled
}

// prepareWorkspace creates a private directory holding the runner script, the
// snippet and the frame. The caller removes it.
func prepareWorkspace(baseDir string, code ValidatedCode, frame []byte) (string, error) {
	if code.source == "" {
		return "", fmt.Errorf("%w: empty snippet", ErrExecution)
	}
	dir, err := os.MkdirTemp(baseDir, "analyzer-plot-")
	if err != nil {
		return "", fmt.Errorf("create plot workspace: %w", err)
	}
	files := map[string][]byte{
		scriptFile:  runnerScript,
		snippetFile: []byte(code.source),
		frameFile:   frame,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return dir, nil
}

func readOutput(dir string) (Image, error) {
	data, err := os.ReadFile(filepath.Join(dir, outputFile))
	if err != nil {
		return Image{}, fmt.Errorf("%w: no chart produced: %v", ErrExecution, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: chart is empty", ErrExecution)
	}
	return Image{Data: data, ContentType: "image/png"}, nil
}

func lastLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
