package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/shopsync/internal/auth"
	domainerrors "github.com/dukerupert/shopsync/internal/errors"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.AuthContext, error)
}

// RequireAuth validates the bearer token and populates AuthContext.
// Requests without a valid token get a 401 JSON error.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, string(domainerrors.CodeUnauthorized), "missing bearer token")
				return
			}

			ac, err := tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, string(domainerrors.CodeUnauthorized), "invalid token")
				return
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": msg})
}
