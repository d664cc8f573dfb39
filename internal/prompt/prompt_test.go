package prompt

import (
	"strings"
	"testing"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
)

func sampleHistory() *conversation.History {
	return conversation.NewHistory(
		conversation.UserTurn("first question"),
		conversation.AssistantTurn("first answer"),
		conversation.UserTurn("second question"),
	)
}

func TestGenerateSQLEmbedsAllContextInOrder(t *testing.T) {
	p := Builder{}.GenerateSQL(SQLInput{
		Question:       "second question",
		Schema:         "Table clients: id (INTEGER), delinquent (BOOLEAN)\n",
		SyntaxRules:    "Use TOP instead of LIMIT.",
		DataDictionary: "delinquent: true when payment is late",
		History:        sampleHistory(),
	})
	markers := []string{
		"<|system|>",
		"<|sintax|>\nUse TOP instead of LIMIT.",
		"<|rules|>",
		"return NO_CONTEXT",
		"<|schema|>\nTable clients: id (INTEGER), delinquent (BOOLEAN)\n",
		"<|data dictionary|>\ndelinquent: true when payment is late",
		"<|history|>\n<|user|>\nfirst question\n<|assistant|>\nfirst answer\n<|user|>\nsecond question\n",
		"<|user|>:\nsecond question\n<|assistant|>:\n",
	}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(p, marker)
		if idx < 0 {
			t.Fatalf("prompt missing %q:\n%s", marker, p)
		}
		if idx < last {
			t.Fatalf("marker %q out of order", marker)
		}
		last = idx
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	in := SummaryInput{Question: "q", SQL: "SELECT 1", ResultTable: "| a |\n| --- |\n| 1 |", History: sampleHistory()}
	if (Builder{}).Summarize(in) != (Builder{}).Summarize(in) {
		t.Fatal("Summarize is not deterministic")
	}
	if (Builder{}).Classify("hi", sampleHistory()) != (Builder{}).Classify("hi", sampleHistory()) {
		t.Fatal("Classify is not deterministic")
	}
}

func TestSummarizeUsesNoResultsMarker(t *testing.T) {
	p := Builder{}.Summarize(SummaryInput{Question: "q", SQL: "SELECT 1", History: conversation.NewHistory()})
	if !strings.Contains(p, "<|sql_result|>\n"+NoResultsMarker) {
		t.Fatalf("prompt missing no-results marker:\n%s", p)
	}
}

func TestContextBlocksAreNotTruncated(t *testing.T) {
	long := strings.Repeat("col_x (TEXT), ", 5000)
	p := Builder{}.GenerateSQL(SQLInput{Question: "q", Schema: long, History: conversation.NewHistory()})
	if !strings.Contains(p, long) {
		t.Fatal("schema block was truncated")
	}
}

func TestClassifyAndCasualEndWithUserMessage(t *testing.T) {
	h := sampleHistory()
	var b Builder
	prompts := map[string]string{
		"classify": b.Classify("thanks", h),
		"casual":   b.Casual("thanks", h),
	}
	for name, p := range prompts {
		if !strings.Contains(p, "<|user|>\nthanks\n") {
			t.Fatalf("%s prompt missing user block:\n%s", name, p)
		}
		if !strings.HasSuffix(p, "<|assistant|>\n") {
			t.Fatalf("%s prompt should end with assistant tag", name)
		}
	}
}

func TestPlotCodeListsColumnsAndAllowedImports(t *testing.T) {
	p := Builder{}.PlotCode(PlotInput{Question: "age by state", Columns: []string{"state", "avg_age"}})
	if !strings.Contains(p, "<|columns|>\nstate, avg_age\n") {
		t.Fatalf("prompt missing columns:\n%s", p)
	}
	if !strings.Contains(p, "import matplotlib.pyplot as plt") {
		t.Fatal("prompt missing allowed import list")
	}
}
