package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// newTestLimiter returns a limiter driven by a settable clock.
func newTestLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(max, window)
	rl.now = func() time.Time { return now }
	t.Cleanup(rl.Close)
	return rl, &now
}

func TestRateLimiter_AllowUpToLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("4th request should be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IPs keep their own window")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl, now := newTestLimiter(t, 1, time.Minute)

	rl.Allow("ip")
	if rl.Allow("ip") {
		t.Fatal("second request in window should be denied")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("ip") {
		t.Error("request in a new window should be allowed")
	}
}

func TestRateLimiter_TimeUntilReset(t *testing.T) {
	rl, now := newTestLimiter(t, 1, time.Minute)

	if d := rl.TimeUntilReset("ip"); d != 0 {
		t.Errorf("unknown key: got %v, want 0", d)
	}

	rl.Allow("ip")
	*now = now.Add(20 * time.Second)
	if d := rl.TimeUntilReset("ip"); d != 40*time.Second {
		t.Errorf("got %v, want 40s", d)
	}
}

func TestRateLimiter_RecordFailureAndReset(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)

	rl.RecordFailure("ip")
	rl.RecordFailure("ip")
	if rl.Allow("ip") {
		t.Fatal("recorded failures should count against the limit")
	}

	rl.Reset("ip")
	if !rl.Allow("ip") {
		t.Error("Reset should clear the window")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, now := newTestLimiter(t, 5, time.Minute)

	rl.Allow("old")
	*now = now.Add(2 * time.Minute)
	rl.Allow("fresh")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["old"]; ok {
		t.Error("expired entry should be swept")
	}
	if _, ok := rl.entries["fresh"]; !ok {
		t.Error("live entry should be kept")
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)
	h := NewRateLimitMiddleware(rl, discardLogger()).Limit(okHandler)

	req := httptest.NewRequest("POST", "/api/sign-in", nil)
	req.RemoteAddr = "192.0.2.1:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}

	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != domain.ERATELIMIT || body.Message == "" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
		{"forwarded chain", "203.0.113.5, 10.0.0.1", "", "10.0.0.2:1", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
