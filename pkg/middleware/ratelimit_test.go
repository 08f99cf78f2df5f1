package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
	"github.com/ekaya-inc/ekaya-content/pkg/cache"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
)

type stubChecker struct {
	result     ratelimit.Result
	err        error
	identifier string
}

func (s *stubChecker) Check(_ context.Context, identifier string, _ ratelimit.Scope) (ratelimit.Result, error) {
	s.identifier = identifier
	return s.result, s.err
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRateLimit_AllowedSetsHeaders(t *testing.T) {
	reset := time.Unix(1_700_003_600, 0)
	checker := &stubChecker{result: ratelimit.Result{Allowed: true, Remaining: 49, Limit: 50, ResetAt: reset}}
	handler := RateLimit(checker, ratelimit.ScopeAPIMedia, RateLimitOptions{}, zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/media/generate", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "50" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "49" {
		t.Errorf("X-RateLimit-Remaining = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "1700003600" {
		t.Errorf("X-RateLimit-Reset = %q", got)
	}
	if checker.identifier != "ip:192.0.2.7" {
		t.Errorf("expected ip identifier, got %q", checker.identifier)
	}
}

func TestRateLimit_DeniedReturns429(t *testing.T) {
	checker := &stubChecker{result: ratelimit.Result{Allowed: false, Limit: 5, RetryAfter: 15 * time.Minute, ResetAt: time.Now()}}
	handler := RateLimit(checker, ratelimit.ScopeLogin, RateLimitOptions{}, zap.NewNop())(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/content/generate", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "900" {
		t.Errorf("Retry-After = %q", got)
	}

	var body rateLimitBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body.Error != "rate_limit_exceeded" || body.RetryAfter != 900 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestRateLimit_UsesUserIdentifierWhenAuthenticated(t *testing.T) {
	checker := &stubChecker{result: ratelimit.Result{Allowed: true}}
	handler := RateLimit(checker, ratelimit.ScopeAPIGeneral, RateLimitOptions{}, zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/content/projects", nil)
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"}}
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	handler(httptest.NewRecorder(), req)

	if checker.identifier != "user:user-42" {
		t.Errorf("expected user identifier, got %q", checker.identifier)
	}
}

func TestRateLimit_CheckErrorPassesThrough(t *testing.T) {
	checker := &stubChecker{err: ratelimit.ErrUnknownScope}
	handler := RateLimit(checker, ratelimit.Scope("bogus"), RateLimitOptions{}, zap.NewNop())(okHandler)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected request to pass through, got %d", rec.Code)
	}
}

func TestRateLimit_WithLimiterDeniesAfterLimit(t *testing.T) {
	limiter := ratelimit.New(cache.NewMemoryStore(), zap.NewNop())
	handler := RateLimit(limiter, ratelimit.ScopeRegister, RateLimitOptions{TrustForwardedFor: true}, zap.NewNop())(okHandler)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.1")
		rec := httptest.NewRecorder()
		handler(rec, req)
		codes = append(codes, rec.Code)
	}

	want := []int{200, 200, 200, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: expected %d, got %d (all: %v)", i+1, want[i], codes[i], codes)
		}
	}
}
