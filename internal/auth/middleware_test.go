package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticAPIKeyValidatorParsing(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:viewer|analyst, k2:bob:viewer")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	if validator.Len() != 2 {
		t.Fatalf("Len() = %d", validator.Len())
	}
	identity, ok := validator.Validate(context.Background(), "k1")
	if !ok {
		t.Fatal("expected key to be valid")
	}
	if identity.Subject != "alice" {
		t.Fatalf("Subject = %q", identity.Subject)
	}
	if !identity.HasRole(RoleAnalyst) || !identity.HasRole(RoleViewer) {
		t.Fatalf("Roles = %v", identity.Roles)
	}
	bob, _ := validator.Validate(context.Background(), "k2")
	if bob.HasRole(RoleAnalyst) {
		t.Fatal("viewer key must not carry analyst role")
	}
	if _, ok := validator.Validate(context.Background(), "k3"); ok {
		t.Fatal("unknown key should be rejected")
	}
}

func TestStaticAPIKeyValidatorRejectsBadSpec(t *testing.T) {
	specs := []string{
		"invalid",
		"k1::analyst",
		"k1:alice:",
		"k1:alice:admin",
		"k1:alice:analyst,k1:bob:viewer",
	}
	for _, spec := range specs {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("expected parse error for %q", spec)
		}
	}
}

func TestMiddlewareRequiresKey(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:analyst")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	var seen Identity
	mw := Middleware(slog.New(slog.NewJSONHandler(io.Discard, nil)), validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	bad := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	bad.Header.Set("X-API-Key", "nope")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, bad)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid key status = %d", rr.Code)
	}

	ok := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	ok.Header.Set("Authorization", "Bearer k1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, ok)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if seen.Subject != "alice" {
		t.Fatalf("identity = %+v", seen)
	}
}
