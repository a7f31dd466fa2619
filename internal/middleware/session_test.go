package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockSessionValidator は固定の判定を返すSessionValidatorモック。
type mockSessionValidator struct {
	validFunc func(ctx context.Context, sessionID string) (bool, error)
}

func (m *mockSessionValidator) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	return m.validFunc(ctx, sessionID)
}

const loginPath = "/api/v1/security/oauth/login"

func TestSessionGateRedirectsWithoutCookie(t *testing.T) {
	validator := &mockSessionValidator{
		validFunc: func(ctx context.Context, sessionID string) (bool, error) {
			t.Fatal("validator must not be called without a cookie")
			return false, nil
		},
	}
	var called bool
	gate := NewSessionGateMiddleware(validator, loginPath, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gyms", nil))

	if called {
		t.Error("handler must not run without a session")
	}
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 redirect, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != loginPath {
		t.Errorf("expected redirect to %s, got %s", loginPath, rec.Header().Get("Location"))
	}
}

func TestSessionGateRedirectsExpiredSession(t *testing.T) {
	validator := &mockSessionValidator{
		validFunc: func(ctx context.Context, sessionID string) (bool, error) {
			return false, nil
		},
	}
	var called bool
	gate := NewSessionGateMiddleware(validator, loginPath, testLogger())(okHandler(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/gyms", nil)
	r.AddCookie(&http.Cookie{Name: "session_id", Value: "expired"})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, r)

	if called || rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("expired session must redirect, got called=%t code=%d", called, rec.Code)
	}
}

func TestSessionGatePassesValidSession(t *testing.T) {
	validator := &mockSessionValidator{
		validFunc: func(ctx context.Context, sessionID string) (bool, error) {
			return sessionID == "live", nil
		},
	}
	var called bool
	gate := NewSessionGateMiddleware(validator, loginPath, testLogger())(okHandler(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/gyms", nil)
	r.AddCookie(&http.Cookie{Name: "session_id", Value: "live"})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, r)

	if !called {
		t.Error("valid session must pass the gate")
	}
}

func TestSessionCookieFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionCookieFromRequest(r); got != "" {
		t.Errorf("expected empty session id, got %q", got)
	}
	r.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	if got := SessionCookieFromRequest(r); got != "sess-1" {
		t.Errorf("expected sess-1, got %q", got)
	}
}
