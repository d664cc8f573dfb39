package plot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/answer"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/prompt"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

const sampleRows = 5

type Generator struct {
	model       llm.Model
	prompts     prompt.Builder
	temperature float64
	logger      *slog.Logger
}

// NewGenerator requires a nonzero temperature; chart code benefits from
// variation while every other task runs deterministically.
func NewGenerator(model llm.Model, temperature float64, logger *slog.Logger) (*Generator, error) {
	if temperature <= 0 {
		return nil, fmt.Errorf("plot temperature must be > 0")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Generator{model: model, temperature: temperature, logger: logger}, nil
}

func (g *Generator) Generate(ctx context.Context, frame query.Result, question string) (Code, error) {
	sample := frame
	if len(sample.Rows) > sampleRows {
		sample.Rows = sample.Rows[:sampleRows]
	}
	text := g.prompts.PlotCode(prompt.PlotInput{
		Question: question,
		Columns:  frame.Columns,
		Sample:   answer.RenderTable(&sample),
	})
	raw, err := g.model.Complete(ctx, text, llm.Options{Task: llm.TaskPlot, Temperature: g.temperature})
	if err != nil {
		g.logger.WarnContext(ctx, "plot code generation failed", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return "", err
	}
	return Code(raw), nil
}
