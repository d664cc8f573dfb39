package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/auth"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
)

const maxTurnTextBytes = 8 << 10

type createSessionRequest struct {
	Greeting *bool `json:"greeting"`
}

type sessionResponse struct {
	SessionID  string                `json:"session_id"`
	CreatedAt  time.Time             `json:"created_at"`
	History    *conversation.History `json:"history"`
	ChartReady bool                  `json:"chart_ready"`
}

type turnRequest struct {
	Text string `json:"text"`
}

type resultPayload struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type turnResponse struct {
	Label      string            `json:"label"`
	Reply      conversation.Turn `json:"reply"`
	SQL        string            `json:"sql,omitempty"`
	Failure    string            `json:"failure,omitempty"`
	Result     *resultPayload    `json:"result,omitempty"`
	ChartReady bool              `json:"chart_ready"`
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil || deps.Bootstrap == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAnalyst); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request createSessionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid session request body", false, map[string]any{"details": err.Error()})
		return
	}
	greet := request.Greeting == nil || *request.Greeting

	sc, err := deps.Bootstrap.Load(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SESSION_BOOTSTRAP_FAILED", "failed to load session context", true, map[string]any{"details": err.Error()})
		return
	}
	session := deps.Sessions.Create(subjectFromRequest(r), sc, greet)
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleViewer); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	var response sessionResponse
	err := deps.Sessions.With(r.Context(), r.PathValue("id"), subjectFromRequest(r), func(session *chat.Session) error {
		response = toSessionResponse(session)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAnalyst); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if err := deps.Sessions.Delete(r.PathValue("id"), subjectFromRequest(r)); err != nil {
		writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleTurn(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil || deps.Conversation == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAnalyst); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request turnRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxTurnTextBytes+1024))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid turn request body", false, map[string]any{"details": err.Error()})
		return
	}
	text := strings.TrimSpace(request.Text)
	if text == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TEXT_REQUIRED", "text is required", false, nil)
		return
	}
	if len(text) > maxTurnTextBytes {
		writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "TEXT_TOO_LONG", "text exceeds the maximum message size", false, map[string]any{"max_bytes": maxTurnTextBytes})
		return
	}

	var response turnResponse
	err := deps.Sessions.With(r.Context(), r.PathValue("id"), subjectFromRequest(r), func(session *chat.Session) error {
		turn := deps.Conversation.HandleTurn(r.Context(), session, text)
		response = turnResponse{
			Label:      turn.Label.String(),
			Reply:      turn.Reply,
			SQL:        turn.SQL,
			ChartReady: session.HasChartData(),
		}
		if turn.Failure != chat.FailureNone {
			response.Failure = turn.Failure.String()
		}
		if turn.Result != nil {
			response.Result = &resultPayload{Columns: turn.Result.Columns, Rows: turn.Result.Rows}
		}
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func toSessionResponse(session *chat.Session) sessionResponse {
	return sessionResponse{
		SessionID:  session.ID,
		CreatedAt:  session.CreatedAt,
		History:    conversation.NewHistory(session.History.Turns()...),
		ChartReady: session.HasChartData(),
	}
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", false, map[string]any{"session_id": r.PathValue("id")})
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		writeError(r.Context(), w, http.StatusServiceUnavailable, "REQUEST_CANCELED", err.Error(), true, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_ERROR", err.Error(), true, nil)
	}
}
