package plot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

func TestGeneratorSamplesFrameAndUsesPlotTemperature(t *testing.T) {
	var gotPrompt string
	var gotOpts llm.Options
	model := llm.ModelFunc(func(_ context.Context, prompt string, opts llm.Options) (string, error) {
		gotPrompt = prompt
		gotOpts = opts
		return "```python\nplt.bar(df['uf'], df['total'])\n```", nil
	})
	gen, err := NewGenerator(model, 0.3, nil)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	frame := query.Result{Columns: []string{"uf", "total"}}
	for i := 1; i <= 7; i++ {
		frame.Rows = append(frame.Rows, []any{fmt.Sprintf("row%d", i), int64(i)})
	}
	code, err := gen.Generate(context.Background(), frame, "customers per state")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(string(code), "plt.bar") {
		t.Fatalf("code = %q", code)
	}
	if gotOpts.Task != llm.TaskPlot || gotOpts.Temperature != 0.3 {
		t.Fatalf("options = %+v", gotOpts)
	}
	if !strings.Contains(gotPrompt, "customers per state") || !strings.Contains(gotPrompt, "row5") {
		t.Fatalf("prompt missing question or sample:\n%s", gotPrompt)
	}
	if strings.Contains(gotPrompt, "row6") {
		t.Fatal("prompt should only carry a sample of the frame")
	}
	if len(frame.Rows) != 7 {
		t.Fatal("sampling must not modify the caller's frame")
	}
}

func TestGeneratorPropagatesModelError(t *testing.T) {
	model := llm.ModelFunc(func(context.Context, string, llm.Options) (string, error) {
		return "", fmt.Errorf("%w: timeout", llm.ErrModelInvocation)
	})
	gen, err := NewGenerator(model, 0.5, nil)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	_, err = gen.Generate(context.Background(), query.Result{Columns: []string{"a"}, Rows: [][]any{{1}}}, "q")
	if !errors.Is(err, llm.ErrModelInvocation) {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestNewGeneratorRequiresTemperature(t *testing.T) {
	if _, err := NewGenerator(llm.ModelFunc(nil), 0, nil); err == nil {
		t.Fatal("expected error for zero temperature")
	}
}
