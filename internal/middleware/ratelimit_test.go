package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/burgas/gymhub/internal/auth"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.01), // テスト中にトークンが補充されない程度に遅く
		GeneralBurst:    3,
		MutationRate:    rate.Limit(0.01),
		MutationBurst:   1,
		CleanupInterval: time.Minute,
	}
}

func doLimited(t *testing.T, mw func(http.Handler) http.Handler, principal *auth.Principal) *httptest.ResponseRecorder {
	t.Helper()
	var called bool
	rec := httptest.NewRecorder()
	mw(okHandler(&called)).ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/api/v1/gyms", "", principal))
	return rec
}

func TestGeneralRateLimitExhaustsBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(), testLogger())
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	for i := 0; i < 3; i++ {
		if rec := doLimited(t, mw, userPrincipal()); rec.Code != http.StatusOK {
			t.Fatalf("request %d within burst must pass, got %d", i+1, rec.Code)
		}
	}

	rec := doLimited(t, mw, userPrincipal())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst exhaustion, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response must carry a Retry-After header")
	}
	body := decodeErrorBody(t, rec)
	if body.Code != http.StatusTooManyRequests || body.Cause != "rate limit exceeded" {
		t.Errorf("unexpected 429 body: %+v", body)
	}
}

func TestRateLimitIsPerCaller(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(), testLogger())
	defer rl.Stop()

	mw := rl.MutationMiddleware()
	first := userPrincipal()
	if rec := doLimited(t, mw, first); rec.Code != http.StatusOK {
		t.Fatalf("first caller within burst must pass, got %d", rec.Code)
	}
	if rec := doLimited(t, mw, first); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first caller over burst must be rejected, got %d", rec.Code)
	}

	other := adminPrincipal()
	if rec := doLimited(t, mw, other); rec.Code != http.StatusOK {
		t.Errorf("other caller must have an independent limiter, got %d", rec.Code)
	}
}

func TestGeneralAndMutationLimitersAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(), testLogger())
	defer rl.Stop()

	mutation := rl.MutationMiddleware()
	if rec := doLimited(t, mutation, userPrincipal()); rec.Code != http.StatusOK {
		t.Fatalf("mutation within burst must pass, got %d", rec.Code)
	}
	if rec := doLimited(t, mutation, userPrincipal()); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("mutation over burst must be rejected, got %d", rec.Code)
	}

	// 変更系の枯渇はAPI全般の予算に影響しない
	general := rl.GeneralMiddleware()
	if rec := doLimited(t, general, userPrincipal()); rec.Code != http.StatusOK {
		t.Errorf("general limiter must be independent of mutation, got %d", rec.Code)
	}
}

func TestRateLimitSkipsUnauthenticatedRequests(t *testing.T) {
	config := testRateLimiterConfig()
	config.GeneralBurst = 1
	rl := NewRateLimiter(config, testLogger())
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	for i := 0; i < 5; i++ {
		var called bool
		rec := httptest.NewRecorder()
		mw(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identities", nil))
		if !called || rec.Code != http.StatusOK {
			t.Fatalf("unauthenticated request %d must bypass the limiter, got %d", i+1, rec.Code)
		}
	}
}
