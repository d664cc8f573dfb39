package conversation

import (
	"encoding/json"
	"testing"
)

func TestRenderPreservesOrderAndRoles(t *testing.T) {
	h := NewHistory(AssistantTurn("Hello! How can I help?"))
	h.Append(UserTurn("How many customers?"))
	h.Append(AssistantTurn("There are 42 customers."))

	want := "<|assistant|>\nHello! How can I help?\n<|user|>\nHow many customers?\n<|assistant|>\nThere are 42 customers.\n"
	if got := h.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	h := NewHistory(UserTurn("hi"))
	turns := h.Turns()
	turns[0] = AssistantTurn("rewritten")
	if got, _ := h.Last(); got.Text() != "hi" {
		t.Fatalf("history mutated through Turns(): %q", got.Text())
	}
}

func TestEmptyHistoryRendersEmpty(t *testing.T) {
	var h *History
	if h.Render() != "" || h.Len() != 0 {
		t.Fatal("nil history should render empty")
	}
	if _, ok := NewHistory().Last(); ok {
		t.Fatal("Last() on empty history should report false")
	}
}

func TestHistoryWireFormat(t *testing.T) {
	h := NewHistory(UserTurn("thanks"), AssistantTurn("You're welcome!"))
	raw, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `[{"role":"user","text":"thanks"},{"role":"assistant","text":"You're welcome!"}]`
	if string(raw) != want {
		t.Fatalf("json = %s", raw)
	}

	var decoded History
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Render() != h.Render() {
		t.Fatalf("decoded history differs: %q", decoded.Render())
	}
}

func TestTurnRejectsUnknownRole(t *testing.T) {
	var turn Turn
	if err := json.Unmarshal([]byte(`{"role":"system","text":"x"}`), &turn); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
