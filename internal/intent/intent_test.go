package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
)

type fakeModel struct {
	reply   string
	err     error
	prompts []string
	opts    []llm.Options
}

func (f *fakeModel) Complete(_ context.Context, prompt string, opts llm.Options) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.reply, f.err
}

func TestParseLabel(t *testing.T) {
	cases := map[string]Label{
		"sql_request":          LabelSQLRequest,
		"  SQL_REQUEST\n":      LabelSQLRequest,
		`"casual_interaction"`: LabelCasualInteraction,
		"Casual_Interaction.":  LabelCasualInteraction,
		"":                     LabelUnrecognized,
		"DROP TABLE clients":   LabelUnrecognized,
		"sql_request please":   LabelUnrecognized,
	}
	for raw, want := range cases {
		if got := ParseLabel(raw); got != want {
			t.Fatalf("ParseLabel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestClassifyIsClosed(t *testing.T) {
	replies := []string{"sql_request", "casual_interaction", "", "maybe", "SELECT 1", "unrecognized"}
	for _, reply := range replies {
		model := &fakeModel{reply: reply}
		got := NewClassifier(model, nil).Classify(context.Background(), "hi", conversation.NewHistory())
		if got != LabelSQLRequest && got != LabelCasualInteraction {
			t.Fatalf("Classify() with reply %q = %v", reply, got)
		}
	}
}

func TestClassifyDefaultsToCasualOnModelError(t *testing.T) {
	model := &fakeModel{err: llm.ErrModelInvocation}
	got := NewClassifier(model, nil).Classify(context.Background(), "How many customers?", conversation.NewHistory())
	if got != LabelCasualInteraction {
		t.Fatalf("Classify() = %v, want casual", got)
	}
}

func TestClassifyUsesZeroTemperatureAndHistory(t *testing.T) {
	model := &fakeModel{reply: "sql_request"}
	history := conversation.NewHistory(conversation.UserTurn("How many customers are delinquent?"))
	got := NewClassifier(model, nil).Classify(context.Background(), "How many customers are delinquent?", history)
	if got != LabelSQLRequest {
		t.Fatalf("Classify() = %v", got)
	}
	if len(model.opts) != 1 || model.opts[0].Temperature != 0 || model.opts[0].Task != llm.TaskClassify {
		t.Fatalf("unexpected options %+v", model.opts)
	}
	if !strings.Contains(model.prompts[0], "<|user|>\nHow many customers are delinquent?") {
		t.Fatalf("prompt missing history:\n%s", model.prompts[0])
	}
}

func TestUnrecognizedIsZeroValue(t *testing.T) {
	var label Label
	if label != LabelUnrecognized || label.String() != "unrecognized" {
		t.Fatalf("zero label = %v", label)
	}
}
