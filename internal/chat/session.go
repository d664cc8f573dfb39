package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/resource"
)

const greeting = "Hello! 👋 I'm your data analysis assistant. How can I help you today?"

// Suggestions are example questions offered to new users.
var Suggestions = []string{
	"What is the average age by state (UF)?",
	"How many customers are delinquent?",
	"How many customers are there per social class?",
}

func GreetingTurn() conversation.Turn {
	return conversation.AssistantTurn(greeting)
}

// SessionContext is loaded once when a session starts and never refreshed.
type SessionContext struct {
	Schema         string
	SyntaxRules    string
	DataDictionary string
}

// Session is the explicit state of one conversation. It is not safe for
// concurrent use; Registry serializes access for shared transports.
type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time
	History   *conversation.History
	Context   SessionContext

	frame         *query.Result
	frameQuestion string
	artifacts     []string
}

func NewSession(id string, sc SessionContext, greet bool) *Session {
	history := conversation.NewHistory()
	if greet {
		history.Append(GreetingTurn())
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		History:   history,
		Context:   sc,
	}
}

// Artifacts lists the stored chart keys, oldest first.
func (s *Session) Artifacts() []string {
	return append([]string(nil), s.artifacts...)
}

func (s *Session) RecordArtifact(key string) {
	s.artifacts = append(s.artifacts, key)
}

// HasChartData reports whether a result is waiting for the chart step.
func (s *Session) HasChartData() bool {
	return s.frame != nil
}

func (s *Session) stashFrame(result query.Result, question string) {
	cleaned := result.WithoutNullRows()
	if len(cleaned.Rows) == 0 {
		s.clearFrame()
		return
	}
	s.frame = &cleaned
	s.frameQuestion = question
}

func (s *Session) clearFrame() {
	s.frame = nil
	s.frameQuestion = ""
}

// Bootstrap gathers the per-session context from the database and resources.
type Bootstrap struct {
	Describer          query.SchemaDescriber
	Resources          *resource.Loader
	SchemaName         string
	SyntaxPath         string
	DataDictionaryPath string
}

func (b Bootstrap) Load(ctx context.Context) (SessionContext, error) {
	schema, err := b.Describer.DescribeSchema(ctx, b.SchemaName)
	if err != nil {
		return SessionContext{}, fmt.Errorf("describe schema: %w", err)
	}
	bundle, err := b.Resources.LoadBundle(ctx, b.SyntaxPath, b.DataDictionaryPath)
	if err != nil {
		return SessionContext{}, err
	}
	return SessionContext{
		Schema:         schema,
		SyntaxRules:    bundle.SyntaxRules,
		DataDictionary: bundle.DataDictionary,
	}, nil
}
