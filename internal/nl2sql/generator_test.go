package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
)

func TestGenerateSQLReturnsTrimmedModelText(t *testing.T) {
	var gotPrompt string
	var gotOpts llm.Options
	model := llm.ModelFunc(func(_ context.Context, prompt string, opts llm.Options) (string, error) {
		gotPrompt, gotOpts = prompt, opts
		return "\n```sql\nSELECT COUNT(*) FROM clients\n```\n", nil
	})
	raw := NewGenerator(model, nil).GenerateSQL(context.Background(), Request{
		Question: "How many customers?",
		Schema:   "Table clients: id (INTEGER)\n",
		History:  conversation.NewHistory(conversation.UserTurn("How many customers?")),
	})
	if raw != "```sql\nSELECT COUNT(*) FROM clients\n```" {
		t.Fatalf("GenerateSQL() = %q", raw)
	}
	if gotOpts.Task != llm.TaskSQL || gotOpts.Temperature != 0 {
		t.Fatalf("unexpected options %+v", gotOpts)
	}
	if !strings.Contains(gotPrompt, "Table clients: id (INTEGER)") {
		t.Fatal("prompt missing schema")
	}
}

func TestGenerateSQLReturnsSentinelOnModelError(t *testing.T) {
	model := llm.ModelFunc(func(context.Context, string, llm.Options) (string, error) {
		return "", llm.ErrModelInvocation
	})
	raw := NewGenerator(model, nil).GenerateSQL(context.Background(), Request{History: conversation.NewHistory()})
	if _, err := ExtractSQL(raw); !errors.Is(err, ErrNoContext) {
		t.Fatalf("ExtractSQL(%q) error = %v, want ErrNoContext", raw, err)
	}
}
