// Package conversation holds the role-tagged turns exchanged during a chat
// session and the append-only history they form.
package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is immutable once created; construct it with UserTurn or AssistantTurn.
type Turn struct {
	role Role
	text string
}

func UserTurn(text string) Turn {
	return Turn{role: RoleUser, text: text}
}

func AssistantTurn(text string) Turn {
	return Turn{role: RoleAssistant, text: text}
}

func (t Turn) Role() Role   { return t.role }
func (t Turn) Text() string { return t.text }

type wireTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTurn{Role: t.role, Text: t.text})
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var w wireTurn
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Role.Valid() {
		return fmt.Errorf("invalid turn role %q", w.Role)
	}
	*t = Turn{role: w.Role, text: w.Text}
	return nil
}

// History is the ordered transcript of a session. It only grows; there is no
// size bound.
type History struct {
	turns []Turn
}

func NewHistory(turns ...Turn) *History {
	h := &History{}
	h.turns = append(h.turns, turns...)
	return h
}

func (h *History) Append(turn Turn) {
	h.turns = append(h.turns, turn)
}

func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.turns)
}

// Turns returns a copy so callers cannot rewrite the transcript.
func (h *History) Turns() []Turn {
	if h == nil {
		return nil
	}
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Last() (Turn, bool) {
	if h.Len() == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Render writes every turn as a role tag line followed by its text, in order.
func (h *History) Render() string {
	if h.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for _, turn := range h.turns {
		b.WriteString("<|")
		b.WriteString(string(turn.role))
		b.WriteString("|>\n")
		b.WriteString(turn.text)
		b.WriteString("\n")
	}
	return b.String()
}

func (h *History) MarshalJSON() ([]byte, error) {
	turns := h.Turns()
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(turns)
}

func (h *History) UnmarshalJSON(data []byte) error {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}
	h.turns = turns
	return nil
}
