package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Service gates access with a single shared token whose bcrypt hash is configured.
type Service struct {
	tokenHash []byte
}

// NewService creates an auth service. An empty hash disables the gate.
func NewService(tokenHash string) *Service {
	return &Service{tokenHash: []byte(strings.TrimSpace(tokenHash))}
}

// Enabled reports whether requests are checked.
func (s *Service) Enabled() bool {
	return len(s.tokenHash) > 0
}

// Middleware rejects requests without a valid token. The token is read from
// "Authorization: Bearer <token>" or, for WebSocket upgrades from browsers,
// the "token" query parameter.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, err := tokenFromRequest(r)
		if err != "" {
			writeJSONError(w, http.StatusUnauthorized, err)
			return
		}

		if cmpErr := bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)); cmpErr != nil {
			log.Debug().Str("path", r.URL.Path).Msg("Access token rejected")
			writeJSONError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest returns the presented token, or a message describing why none was found.
func tokenFromRequest(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", "invalid authorization header format"
	}
	if parts[1] == "" {
		return "", "empty access token"
	}
	return parts[1], ""
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
