package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"smartfix/backend/internal/domain"
)

func TestCSRFRequiredOnMutations(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drawer/open", token, "",
		domain.DrawerOpenRequest{Denominations: map[string]int{"bills_100": 1}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing csrf: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drawer/open", token, "not-a-real-token",
		domain.DrawerOpenRequest{Denominations: map[string]int{"bills_100": 1}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bogus csrf: expected 403, got %d", rec.Code)
	}

	// Reads stay exempt.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/drawer/status", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read without csrf: expected 200, got %d", rec.Code)
	}
}

func TestCSRFTokenValidation(t *testing.T) {
	api := newTestAPI(t)

	if api.validateCSRFToken("") {
		t.Fatal("empty token must not validate")
	}
	token := api.generateCSRFToken()
	if !api.validateCSRFToken(token) {
		t.Fatal("freshly generated token must validate")
	}

	other := newTestAPI(t)
	if other.validateCSRFToken(token) {
		t.Fatal("token from another instance must not validate")
	}
}

func TestLoginRateLimiting(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	var last int
	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "",
			domain.LoginRequest{Username: "admin", Password: "wrong"})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt: expected 429, got %d", last)
	}
}

func TestPINRateLimiterWindow(t *testing.T) {
	limiter := newAttemptLimiter(2, 0)
	for i := 0; i < 2; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("third attempt should be blocked")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("other clients must not share the budget")
	}
}

func TestSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for key, want := range headers {
		if got := rec.Header().Get(key); got != want {
			t.Fatalf("%s: want %q, got %q", key, want, got)
		}
	}
}

func TestClientKeyParsing(t *testing.T) {
	cases := map[string]string{
		"192.168.1.10:51123": "192.168.1.10",
		"[::1]:8080":         "::1",
		"":                   "unknown",
	}
	for remote, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = remote
		if got := clientKey(req); got != want {
			t.Fatalf("clientKey(%q): want %q, got %q", remote, want, got)
		}
	}
}
