// Package llm abstracts the text-completion model behind every pipeline step.
package llm

import (
	"context"
	"errors"
)

// ErrModelInvocation marks any failure reaching the model or reading its reply.
var ErrModelInvocation = errors.New("model invocation failed")

type Task string

const (
	TaskClassify Task = "classify"
	TaskSQL      Task = "sql"
	TaskSummary  Task = "summary"
	TaskCasual   Task = "casual"
	TaskPlot     Task = "plot"
)

type Options struct {
	Task        Task
	Temperature float64
}

// Model sends a single prompt and returns the raw completion text.
type Model interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(ctx context.Context, prompt string, opts Options) (string, error)

func (f ModelFunc) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}
