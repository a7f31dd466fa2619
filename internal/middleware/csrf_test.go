package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func findCSRFCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" {
			return c
		}
	}
	return nil
}

func TestCSRFSafeMethodDistributesCookie(t *testing.T) {
	var called bool
	mw := NewCSRFMiddleware(CSRFConfig{}, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gyms", nil))

	if !called {
		t.Fatal("safe method must pass without a token")
	}
	cookie := findCSRFCookie(t, rec)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("safe method must set the csrf_token cookie")
	}
	if cookie.HttpOnly {
		t.Error("csrf_token cookie must be readable from the frontend")
	}
	if len(cookie.Value) != 64 {
		t.Errorf("expected 32-byte hex token, got %q", cookie.Value)
	}
}

func TestCSRFSafeMethodKeepsExistingCookie(t *testing.T) {
	var called bool
	mw := NewCSRFMiddleware(CSRFConfig{}, testLogger())(okHandler(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/gyms", nil)
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, r)

	if !called {
		t.Fatal("safe method must pass")
	}
	if cookie := findCSRFCookie(t, rec); cookie != nil {
		t.Errorf("existing token must not be reissued, got %q", cookie.Value)
	}
}

func TestCSRFMutationRequiresMatchingToken(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{}, testLogger())

	cases := []struct {
		name   string
		cookie string
		header string
	}{
		{name: "no token at all"},
		{name: "cookie only", cookie: "tok-1"},
		{name: "header only", header: "tok-1"},
		{name: "mismatched tokens", cookie: "tok-1", header: "tok-2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			r := httptest.NewRequest(http.MethodPost, "/api/v1/gyms", nil)
			if tc.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "csrf_token", Value: tc.cookie})
			}
			if tc.header != "" {
				r.Header.Set("X-CSRF-Token", tc.header)
			}
			rec := httptest.NewRecorder()
			mw(okHandler(&called)).ServeHTTP(rec, r)

			if called {
				t.Error("handler must not run on CSRF failure")
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if body := decodeErrorBody(t, rec); body.Cause != "CSRF token validation failed" {
				t.Errorf("unexpected cause: %q", body.Cause)
			}
		})
	}
}

func TestCSRFMutationPassesWithMatchingToken(t *testing.T) {
	var called bool
	mw := NewCSRFMiddleware(CSRFConfig{}, testLogger())(okHandler(&called))

	r := httptest.NewRequest(http.MethodPost, "/api/v1/gyms", nil)
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok-1"})
	r.Header.Set("X-CSRF-Token", "tok-1")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, r)

	if !called || rec.Code != http.StatusOK {
		t.Errorf("matching tokens must pass, got called=%t code=%d", called, rec.Code)
	}
}

func TestCSRFTokenHandlerIssuesAndEchoesToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{}, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/security/csrf-token", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	cookie := findCSRFCookie(t, rec)
	if cookie == nil || cookie.Value != body["token"] {
		t.Fatal("issued cookie and response token must match")
	}

	// 既存Cookieがあればそれをそのまま返す
	r := httptest.NewRequest(http.MethodGet, "/api/v1/security/csrf-token", nil)
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	body = map[string]string{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if body["token"] != "existing" {
		t.Errorf("expected existing token to be echoed, got %q", body["token"])
	}
}
