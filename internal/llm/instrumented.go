package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
)

type instrumented struct {
	next   Model
	logger *slog.Logger
}

// Instrument records latency and outcome of every call and guarantees that
// failures surface as ErrModelInvocation.
func Instrument(next Model, logger *slog.Logger) Model {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &instrumented{next: next, logger: logger}
}

func (m *instrumented) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	out, err := m.next.Complete(ctx, prompt, opts)
	elapsed := time.Since(start)
	observability.ObserveModelCall(string(opts.Task), err, elapsed)

	attrs := append(observability.LogAttrs(ctx),
		"task", string(opts.Task),
		"temperature", opts.Temperature,
		"duration_ms", elapsed.Milliseconds(),
	)
	if err != nil {
		m.logger.WarnContext(ctx, "model call failed", append(attrs, "error", err.Error())...)
		if !errors.Is(err, ErrModelInvocation) {
			err = fmt.Errorf("%w: %v", ErrModelInvocation, err)
		}
		return "", err
	}
	m.logger.DebugContext(ctx, "model call completed", append(attrs, "response_chars", len(out))...)
	return out, nil
}
