// Package endpoints defines every HTTP route of the wikibook server and
// its matching CLI command.
package endpoints

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yosihaf/wikibook/internal/auth"
	"github.com/yosihaf/wikibook/internal/svcctx"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// bearerToken extracts the bearer token from a request, if any.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return after
	}
	return ""
}

// requireSession resolves the request's session or writes a 401.
// Returns nil when the response has already been written.
func requireSession(w http.ResponseWriter, r *http.Request) *auth.Session {
	am := svcctx.AuthFrom(r.Context())
	if am == nil {
		writeError(w, http.StatusServiceUnavailable, "auth not initialized")
		return nil
	}
	session, err := am.Session(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil
	}
	return session
}

// requireAdmin resolves the request's session and enforces the admin
// role. Returns nil when the response has already been written.
func requireAdmin(w http.ResponseWriter, r *http.Request) *auth.Session {
	session := requireSession(w, r)
	if session == nil {
		return nil
	}
	if !session.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return nil
	}
	return session
}
