package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/shopsync/internal/auth"
)

func testTokens() *auth.Tokens {
	return auth.NewTokens([]byte("middleware-test-secret"), time.Hour)
}

func protected(t *testing.T) http.Handler {
	return RequireAuth(testTokens())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))
}

func TestRequireAuthNoHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	protected(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body["code"])
	}
}

func TestRequireAuthWrongScheme(t *testing.T) {
	token, _ := testTokens().Issue("user-1")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	protected(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	other := auth.NewTokens([]byte("some-other-secret-value"), time.Hour)
	token, _ := other.Issue("user-1")

	for _, header := range []string{"Bearer invalid-token", "Bearer " + token, "Bearer"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		protected(t).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.Issue("user-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotAC auth.AuthContext
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", gotAC.UserID)
	}
}
