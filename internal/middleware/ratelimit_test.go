package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// requestFrom は指定IPからのリクエストを生成する。
func requestFrom(method, path, ip string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":54321"
	return req
}

func testConfig(generalBurst, writeBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		WriteRate:       1,
		WriteBurst:      writeBurst,
		CleanupInterval: time.Minute,
	}
}

// --- GeneralMiddleware のテスト ---

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(testConfig(5, 5))
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", "203.0.113.1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfterHeader(t *testing.T) {
	rl := NewRateLimiter(testConfig(2, 2))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", "203.0.113.2"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", "203.0.113.2"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive integer", w.Header().Get("Retry-After"))
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode 429 body: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want %q", body.Code, "RATE_LIMIT_EXCEEDED")
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	rl := NewRateLimiter(testConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", "198.51.100.1"))
	if w.Code != http.StatusOK {
		t.Fatalf("client 1 first request: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", "198.51.100.1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("client 1 second request: status = %d, want 429", w.Code)
	}

	// 別IPは影響を受けない
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", "198.51.100.2"))
	if w.Code != http.StatusOK {
		t.Errorf("client 2: status = %d, want 200", w.Code)
	}
}

// --- WriteMiddleware のテスト ---

func TestWriteRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	rl := NewRateLimiter(testConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())
	ip := "192.0.2.10"

	w := httptest.NewRecorder()
	write.ServeHTTP(w, requestFrom(http.MethodPost, "/api/beef/1/vote", ip))
	if w.Code != http.StatusOK {
		t.Fatalf("first write: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	write.ServeHTTP(w, requestFrom(http.MethodPost, "/api/beef/1/vote", ip))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second write: status = %d, want 429", w.Code)
	}

	// 書き込み制限に達しても読み取りは通る
	w = httptest.NewRecorder()
	general.ServeHTTP(w, requestFrom(http.MethodGet, "/api/beef/1", ip))
	if w.Code != http.StatusOK {
		t.Errorf("read after write limit: status = %d, want 200", w.Code)
	}

	if rl.WriteLimiterCount() != 1 || rl.GeneralLimiterCount() != 1 {
		t.Errorf("limiter counts = %d/%d, want 1/1", rl.GeneralLimiterCount(), rl.WriteLimiterCount())
	}
}

// --- クリーンアップのテスト ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	cfg := testConfig(5, 5)
	cfg.CleanupInterval = 50 * time.Millisecond // テスト用に短く

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	rl.GeneralMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "/", "192.0.2.99"))
	if rl.GeneralLimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// TTLは50ms * 2 = 100ms、250ms待てば削除される
	time.Sleep(250 * time.Millisecond)

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(testConfig(1, 1))
	rl.Stop()
	rl.Stop()
}

// --- 設定値のテスト ---

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2.0 { // 120/60 = 2
		t.Errorf("GeneralRate = %f, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.WriteRate != 0.5 { // 30/60
		t.Errorf("WriteRate = %f, want 0.5", cfg.WriteRate)
	}
	if cfg.WriteBurst != 30 {
		t.Errorf("WriteBurst = %d, want 30", cfg.WriteBurst)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:443"
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q, want %q", got, "203.0.113.7")
	}

	// RealIPで書き換えられたポートなしのアドレス
	req.RemoteAddr = "2001:db8::1"
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Errorf("ClientIP = %q, want %q", got, "2001:db8::1")
	}
}
