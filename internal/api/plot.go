package api

import (
	"encoding/base64"
	"net/http"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/auth"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
)

type plotResponse struct {
	Code        string `json:"code"`
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
	ArtifactKey string `json:"artifact_key,omitempty"`
}

func handlePlot(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil || deps.Conversation == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAnalyst); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var result chat.PlotResult
	err := deps.Sessions.With(r.Context(), r.PathValue("id"), subjectFromRequest(r), func(session *chat.Session) error {
		result = deps.Conversation.RenderPlot(r.Context(), session)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}

	switch result.Outcome {
	case chat.PlotRendered:
		writeJSON(w, http.StatusOK, plotResponse{
			Code:        result.Code,
			ImageBase64: base64.StdEncoding.EncodeToString(result.Image.Data),
			ContentType: result.Image.ContentType,
			ArtifactKey: result.ArtifactKey,
		})
	case chat.PlotNoData:
		writeError(r.Context(), w, http.StatusConflict, "PLOT_NO_DATA", result.Reason, false, nil)
	case chat.PlotUnsafe:
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "PLOT_UNSAFE", "the generated chart code was not considered safe to run", true, map[string]any{"reason": result.Reason})
	case chat.PlotDisabled:
		writeError(r.Context(), w, http.StatusNotImplemented, "PLOT_DISABLED", result.Reason, false, nil)
	default:
		writeError(r.Context(), w, http.StatusBadGateway, "PLOT_FAILED", "chart rendering failed", false, map[string]any{"reason": result.Reason, "code": result.Code})
	}
}
