// Package nl2sql turns a natural-language question into a validated SELECT
// statement using the language model.
package nl2sql

import (
	"context"
	"log/slog"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/prompt"
)

type Request struct {
	Question       string
	Schema         string
	SyntaxRules    string
	DataDictionary string
	History        *conversation.History
}

type Generator struct {
	model   llm.Model
	prompts prompt.Builder
	logger  *slog.Logger
}

func NewGenerator(model llm.Model, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Generator{model: model, logger: logger}
}

// GenerateSQL returns the raw model text. A model failure yields the
// NO_CONTEXT sentinel so ExtractSQL reports it as ErrNoContext.
func (g *Generator) GenerateSQL(ctx context.Context, req Request) string {
	text := g.prompts.GenerateSQL(prompt.SQLInput{
		Question:       req.Question,
		Schema:         req.Schema,
		SyntaxRules:    req.SyntaxRules,
		DataDictionary: req.DataDictionary,
		History:        req.History,
	})
	raw, err := g.model.Complete(ctx, text, llm.Options{Task: llm.TaskSQL, Temperature: 0})
	if err != nil {
		g.logger.WarnContext(ctx, "sql generation failed", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return prompt.NoContextSentinel
	}
	return strings.TrimSpace(raw)
}
