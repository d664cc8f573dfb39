package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/auth"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage"
)

func handleGetArtifact(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	key, ok := authorizeArtifact(deps, w, r, auth.RoleViewer)
	if !ok {
		return
	}

	info, err := deps.Artifacts.Stat(r.Context(), key)
	if err != nil {
		writeArtifactError(w, r, key, err)
		return
	}
	body, err := deps.Artifacts.Get(r.Context(), key)
	if err != nil {
		writeArtifactError(w, r, key, err)
		return
	}
	defer func() { _ = body.Close() }()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func handleDeleteArtifact(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	key, ok := authorizeArtifact(deps, w, r, auth.RoleAnalyst)
	if !ok {
		return
	}
	if err := deps.Artifacts.Delete(r.Context(), key); err != nil {
		writeArtifactError(w, r, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeArtifact admits only chart keys whose session belongs to the
// caller.
func authorizeArtifact(deps Dependencies, w http.ResponseWriter, r *http.Request, role string) (string, bool) {
	if deps.Artifacts == nil || deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARTIFACTS_NOT_CONFIGURED", "artifact storage is not configured", false, nil)
		return "", false
	}
	if err := requireRole(r, role); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return "", false
	}
	key := r.PathValue("key")
	sessionID, ok := storage.ChartSession(key)
	if !ok || path.Clean(key) != key {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARTIFACT_KEY", "artifact key is not a chart key", false, map[string]any{"key": key})
		return "", false
	}
	if !deps.Sessions.Owns(sessionID, subjectFromRequest(r)) {
		writeError(r.Context(), w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", "artifact not found", false, map[string]any{"key": key})
		return "", false
	}
	return key, true
}

func writeArtifactError(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", "artifact not found", false, map[string]any{"key": key})
		return
	}
	writeError(r.Context(), w, http.StatusBadGateway, "ARTIFACT_STORE_ERROR", "artifact store request failed", true, map[string]any{"details": err.Error()})
}
