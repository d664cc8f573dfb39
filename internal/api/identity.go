package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/auth"
)

const anonymousSubject = "anonymous"

// subjectFromRequest resolves the session owner. Without authentication the
// X-Subject header, when present, separates local users.
func subjectFromRequest(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		if subject := strings.TrimSpace(identity.Subject); subject != "" {
			return subject
		}
	}
	if subject := strings.TrimSpace(r.Header.Get("X-Subject")); subject != "" {
		return subject
	}
	return anonymousSubject
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
