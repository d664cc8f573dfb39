// Package answer produces the natural-language replies shown to the user.
// Model failures never escape: each responder degrades to an apology text.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/prompt"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

const (
	summaryFallbackFormat = "Sorry, I could not generate a natural-language answer. Error: %v"
	casualFallbackFormat  = "Sorry, I could not respond due to an error: %v"
)

type Summarizer struct {
	model   llm.Model
	prompts prompt.Builder
	logger  *slog.Logger
}

func NewSummarizer(model llm.Model, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Summarizer{model: model, logger: logger}
}

// Summarize answers question from result. A nil result means the query could
// not run and is reported to the model as "No results found.".
func (s *Summarizer) Summarize(ctx context.Context, result *query.Result, question, sql string, history *conversation.History) string {
	text := s.prompts.Summarize(prompt.SummaryInput{
		Question:    question,
		SQL:         sql,
		ResultTable: RenderTable(result),
		History:     history,
	})
	reply, err := s.model.Complete(ctx, text, llm.Options{Task: llm.TaskSummary, Temperature: 0})
	if err != nil {
		s.logger.WarnContext(ctx, "summary generation failed", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return fmt.Sprintf(summaryFallbackFormat, err)
	}
	return strings.TrimSpace(reply)
}

type CasualResponder struct {
	model       llm.Model
	prompts     prompt.Builder
	temperature float64
	logger      *slog.Logger
}

func NewCasualResponder(model llm.Model, temperature float64, logger *slog.Logger) *CasualResponder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CasualResponder{model: model, temperature: temperature, logger: logger}
}

func (r *CasualResponder) Respond(ctx context.Context, message string, history *conversation.History) string {
	reply, err := r.model.Complete(ctx, r.prompts.Casual(message, history), llm.Options{Task: llm.TaskCasual, Temperature: r.temperature})
	if err != nil {
		r.logger.WarnContext(ctx, "casual reply failed", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return fmt.Sprintf(casualFallbackFormat, err)
	}
	return strings.TrimSpace(reply)
}
