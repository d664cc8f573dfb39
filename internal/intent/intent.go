// Package intent decides whether a user message asks for data or is small talk.
package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/prompt"
)

type Label int

const (
	LabelUnrecognized Label = iota
	LabelSQLRequest
	LabelCasualInteraction
)

func (l Label) String() string {
	switch l {
	case LabelSQLRequest:
		return "sql_request"
	case LabelCasualInteraction:
		return "casual_interaction"
	default:
		return "unrecognized"
	}
}

// ParseLabel normalizes raw model text. Surrounding quotes are tolerated
// because models often echo the literal as shown in the prompt.
func ParseLabel(raw string) Label {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.Trim(normalized, "\"'` .")
	switch normalized {
	case "sql_request":
		return LabelSQLRequest
	case "casual_interaction":
		return LabelCasualInteraction
	default:
		return LabelUnrecognized
	}
}

type Classifier struct {
	model   llm.Model
	prompts prompt.Builder
	logger  *slog.Logger
}

func NewClassifier(model llm.Model, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Classifier{model: model, logger: logger}
}

// Classify always returns LabelSQLRequest or LabelCasualInteraction. Model
// failures and unknown replies both fall back to casual.
func (c *Classifier) Classify(ctx context.Context, message string, history *conversation.History) Label {
	raw, err := c.model.Complete(ctx, c.prompts.Classify(message, history), llm.Options{Task: llm.TaskClassify, Temperature: 0})
	if err != nil {
		c.logger.WarnContext(ctx, "classification failed, defaulting to casual", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return LabelCasualInteraction
	}
	label := ParseLabel(raw)
	if label == LabelUnrecognized {
		c.logger.WarnContext(ctx, "unrecognized classification, defaulting to casual", append(observability.LogAttrs(ctx), "raw", raw)...)
		return LabelCasualInteraction
	}
	return label
}
