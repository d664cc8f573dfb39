package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/auth"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
)

func TestHealthEndpoint(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Trace-ID") == "" {
		t.Fatal("expected trace header")
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		Readiness: CheckDatabase(func(context.Context) error {
			return errors.New("dependency down")
		}),
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["error_code"] != "NOT_READY" || body["retryable"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/suggestions", nil))

	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(body.Suggestions) != 3 {
		t.Fatalf("suggestions = %v", body.Suggestions)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{
		"ANALYZER_AUTH_REQUIRED": "true",
	}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	validator, err := auth.NewStaticAPIKeyValidator("k1:alice:analyst|viewer,k2:bob:viewer")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	deps, _ := newTestDependencies("")
	deps.AuthMiddleware = auth.Middleware(nil, validator)
	h := NewHandler(cfg, deps)

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	viewerReq := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	viewerReq.Header.Set("X-API-Key", "k2")
	viewerResp := httptest.NewRecorder()
	h.ServeHTTP(viewerResp, viewerReq)
	if viewerResp.Code != http.StatusForbidden {
		t.Fatalf("viewer status = %d", viewerResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	authReq.Header.Set("X-API-Key", "k1")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusCreated {
		t.Fatalf("auth status = %d, body = %s", authResp.Code, authResp.Body.String())
	}

	var created sessionBody
	if err := json.Unmarshal(authResp.Body.Bytes(), &created); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	otherReq := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.SessionID, nil)
	otherReq.Header.Set("X-API-Key", "k2")
	otherResp := httptest.NewRecorder()
	h.ServeHTTP(otherResp, otherReq)
	if otherResp.Code != http.StatusNotFound {
		t.Fatalf("foreign session status = %d", otherResp.Code)
	}
}

func TestAuthRequiredWithoutMiddlewareFailsClosed(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{"ANALYZER_AUTH_REQUIRED": "true"}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	deps, _ := newTestDependencies("")
	rr := httptest.NewRecorder()
	NewHandler(cfg, deps).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader("{}")))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		nil,
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestCheckArtifactStoreConfig(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	if err := CheckArtifactStoreConfig(cfg)(context.Background()); err != nil {
		t.Fatalf("disabled store should be ready: %v", err)
	}
	cfg.Artifacts.Enabled = true
	cfg.Artifacts.Bucket = ""
	if err := CheckArtifactStoreConfig(cfg)(context.Background()); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestUIHandlerServesNonAPIRoutes(t *testing.T) {
	cfg, err := config.Load("analyzer-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		UI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>ok</html>")
		}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}
