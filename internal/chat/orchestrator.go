// Package chat drives conversation turns: classify the message, then either
// answer it from the database or reply casually.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/intent"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/nl2sql"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

const (
	unrecognizedReply    = "Sorry, I could not understand your message. Please try again."
	processFailureFormat = "Sorry, I could not process your request. Error: %v"
)

type State int

const (
	StateAwaitingInput State = iota
	StateClassifying
	StateGeneratingSQL
	StateExecuting
	StateSummarizing
	StateRespondingCasually
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateClassifying:
		return "classifying"
	case StateGeneratingSQL:
		return "generating_sql"
	case StateExecuting:
		return "executing"
	case StateSummarizing:
		return "summarizing"
	case StateRespondingCasually:
		return "responding_casually"
	default:
		return "unknown"
	}
}

type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNoContext
	FailureNotSelect
	FailureQueryExecution
	FailureUnrecognizedLabel
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNoContext:
		return "no_context"
	case FailureNotSelect:
		return "not_select"
	case FailureQueryExecution:
		return "query_execution"
	case FailureUnrecognizedLabel:
		return "unrecognized_label"
	default:
		return "unknown"
	}
}

type Classifier interface {
	Classify(ctx context.Context, message string, history *conversation.History) intent.Label
}

type SQLGenerator interface {
	GenerateSQL(ctx context.Context, req nl2sql.Request) string
}

type Summarizer interface {
	Summarize(ctx context.Context, result *query.Result, question, sql string, history *conversation.History) string
}

type CasualResponder interface {
	Respond(ctx context.Context, message string, history *conversation.History) string
}

type Dependencies struct {
	Classifier Classifier
	Generator  SQLGenerator
	Engine     query.Engine
	Summarizer Summarizer
	Casual     CasualResponder
	RowLimit   int
	Plot       PlotDependencies
	Logger     *slog.Logger
}

type Orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
}

func NewOrchestrator(deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Orchestrator{deps: deps, logger: logger}
}

// TurnResult describes one handled turn. Result is nil when no query ran or
// the query failed.
type TurnResult struct {
	Label   intent.Label
	Path    []State
	SQL     string
	Result  *query.Result
	Reply   conversation.Turn
	Failure FailureKind
	Err     error
}

// HandleTurn processes one user message. It never fails: every error becomes
// the assistant reply, and exactly one assistant turn is appended.
func (o *Orchestrator) HandleTurn(ctx context.Context, session *Session, text string) TurnResult {
	ctx = observability.ContextWithSessionID(ctx, session.ID)
	session.History.Append(conversation.UserTurn(text))

	turn := TurnResult{Path: []State{StateClassifying}}
	turn.Label = o.deps.Classifier.Classify(ctx, text, session.History)

	var reply string
	switch turn.Label {
	case intent.LabelSQLRequest:
		reply = o.answerFromData(ctx, session, text, &turn)
	case intent.LabelCasualInteraction:
		turn.Path = append(turn.Path, StateRespondingCasually)
		reply = o.deps.Casual.Respond(ctx, text, session.History)
	case intent.LabelUnrecognized:
		turn.Failure = FailureUnrecognizedLabel
		reply = unrecognizedReply
	default:
		turn.Failure = FailureUnrecognizedLabel
		reply = unrecognizedReply
	}

	turn.Reply = conversation.AssistantTurn(reply)
	session.History.Append(turn.Reply)
	turn.Path = append(turn.Path, StateAwaitingInput)

	observability.ObserveTurn(turn.Label.String(), turn.Failure.String())
	o.logger.InfoContext(ctx, "turn handled", append(observability.LogAttrs(ctx),
		"label", turn.Label.String(),
		"failure", turn.Failure.String(),
		"history_len", session.History.Len(),
	)...)
	return turn
}

func (o *Orchestrator) answerFromData(ctx context.Context, session *Session, question string, turn *TurnResult) string {
	turn.Path = append(turn.Path, StateGeneratingSQL)
	raw := o.deps.Generator.GenerateSQL(ctx, nl2sql.Request{
		Question:       question,
		Schema:         session.Context.Schema,
		SyntaxRules:    session.Context.SyntaxRules,
		DataDictionary: session.Context.DataDictionary,
		History:        session.History,
	})

	sql, err := nl2sql.ExtractSQL(raw)
	if err != nil {
		switch nl2sql.KindOf(err) {
		case nl2sql.KindNoContext:
			turn.Failure = FailureNoContext
		case nl2sql.KindNotSelect:
			turn.Failure = FailureNotSelect
		case nl2sql.KindNone:
			turn.Failure = FailureNotSelect
		}
		turn.Err = err
		session.clearFrame()
		o.logger.InfoContext(ctx, "sql extraction failed", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return fmt.Sprintf(processFailureFormat, err)
	}
	turn.SQL = sql

	turn.Path = append(turn.Path, StateExecuting)
	result, err := o.deps.Engine.Execute(ctx, query.Request{SQL: sql, RowLimit: o.deps.RowLimit})
	if err != nil {
		// Absence: the summary explains that no data was found.
		turn.Failure = FailureQueryExecution
		turn.Err = err
	} else {
		turn.Result = &result
	}

	turn.Path = append(turn.Path, StateSummarizing)
	reply := o.deps.Summarizer.Summarize(ctx, turn.Result, question, sql, session.History)

	if turn.Result != nil && !turn.Result.Empty() {
		session.stashFrame(*turn.Result, question)
	} else {
		session.clearFrame()
	}
	return reply
}
