package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/pequemaths/internal/model"
)

func testRateLimiterConfig(generalBurst, adminBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		AdminWriteRate:  1,
		AdminWriteBurst: adminBurst,
		CleanupInterval: 1 * time.Minute,
	}
}

// requestAs はuidのユーザーとしてログイン済みのリクエストを生成する。uidが空なら未ログイン。
func requestAs(method, uid string) *http.Request {
	req := httptest.NewRequest(method, "/api/test", nil)
	if uid != "" {
		req = req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{UID: uid}))
	}
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- GeneralMiddleware (API全般) のテスト ---

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 1))
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		if w := serve(handler, requestAs(http.MethodGet, "user-1")); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfterHeader(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// バースト分（2回）は通る
	for i := 0; i < 2; i++ {
		if w := serve(handler, requestAs(http.MethodGet, "user-rate-limit")); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	// 3回目はレート制限に引っかかる
	w := serve(handler, requestAs(http.MethodGet, "user-rate-limit"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	retrySeconds, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil {
		t.Errorf("Retry-After header should be a number, got %q", w.Header().Get("Retry-After"))
	}
	if retrySeconds < 1 {
		t.Errorf("Retry-After = %d, should be at least 1", retrySeconds)
	}
}

func TestRateLimitMiddleware_IsolatesUserRateLimits(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	if w := serve(handler, requestAs(http.MethodGet, "user-A")); w.Code != http.StatusOK {
		t.Errorf("user-A first request: status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := serve(handler, requestAs(http.MethodGet, "user-A")); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-A second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	// ユーザーBはユーザーAのレートに影響されない
	if w := serve(handler, requestAs(http.MethodGet, "user-B")); w.Code != http.StatusOK {
		t.Errorf("user-B first request: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_AnonymousKeyedByClientIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	req := func(addr string) *http.Request {
		r := requestAs(http.MethodGet, "")
		r.RemoteAddr = addr
		return r
	}

	if w := serve(handler, req("10.0.0.1:1234")); w.Code != http.StatusOK {
		t.Errorf("first request: status = %d", w.Code)
	}
	// 同じIPは別ポートでも同じクライアント
	if w := serve(handler, req("10.0.0.1:5678")); w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP: status = %d, want 429", w.Code)
	}
	if w := serve(handler, req("10.0.0.2:1234")); w.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", w.Code)
	}
}

// --- AdminWriteMiddleware のテスト ---

func TestAdminWriteRateLimit_Returns429WhenLimitExceeded(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     100, // 高い値（制限に引っかからないように）
		GeneralBurst:    200,
		AdminWriteRate:  1,
		AdminWriteBurst: 3,
	})
	defer rl.Stop()

	handler := rl.AdminWriteMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		if w := serve(handler, requestAs(http.MethodPost, "boss")); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	w := serve(handler, requestAs(http.MethodPost, "boss"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header to be present")
	}
}

func TestAdminWriteRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	// General limitを使い果たす
	serve(rl.GeneralMiddleware()(okHandler()), requestAs(http.MethodGet, "user-indep"))

	w := serve(rl.AdminWriteMiddleware()(okHandler()), requestAs(http.MethodPost, "user-indep"))
	if w.Code != http.StatusOK {
		t.Errorf("admin write should still be allowed: status = %d, want %d", w.Code, http.StatusOK)
	}
	if rl.GeneralLimiterCount() != 1 || rl.AdminWriteLimiterCount() != 1 {
		t.Errorf("counts = %d, %d, want 1, 1", rl.GeneralLimiterCount(), rl.AdminWriteLimiterCount())
	}
}

// --- 429レスポンスフォーマットのテスト ---

func TestRateLimitMiddleware_429ResponseIsJSON(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	serve(handler, requestAs(http.MethodGet, "user-json-test"))
	w := serve(handler, requestAs(http.MethodGet, "user-json-test"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"code", "message", "category", "action"} {
		if body[field] == "" {
			t.Errorf("expected %q field in error response", field)
		}
	}
}

// --- クリーンアップのテスト ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	cfg := testRateLimiterConfig(5, 5)
	cfg.CleanupInterval = 50 * time.Millisecond // テスト用に短く

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	serve(rl.GeneralMiddleware()(okHandler()), requestAs(http.MethodGet, "user-cleanup"))
	serve(rl.AdminWriteMiddleware()(okHandler()), requestAs(http.MethodPost, "user-cleanup"))

	if rl.GeneralLimiterCount() == 0 || rl.AdminWriteLimiterCount() == 0 {
		t.Fatal("expected limiter entries")
	}

	// エントリのTTLはCleanupIntervalの2倍。50ms * 2 = 100ms
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 && rl.AdminWriteLimiterCount() == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("expected 0 limiter entries after cleanup, got %d, %d",
		rl.GeneralLimiterCount(), rl.AdminWriteLimiterCount())
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

// --- ミドルウェアチェーンとの統合テスト ---

func TestRateLimitMiddleware_InChainWithSessionAndCORS(t *testing.T) {
	resolver := &mockResolver{identities: map[string]*model.Identity{
		"rate-limit-session": {UID: "user-rate-chain"},
	}}

	rl := NewRateLimiter(testRateLimiterConfig(2, 1))
	defer rl.Stop()

	// CORS -> Session -> RateLimit -> Handler
	handler := NewCORSMiddleware([]string{"http://localhost:3000"})(
		NewSessionMiddleware(resolver, "")(
			rl.GeneralMiddleware()(okHandler())))

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		r.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: "rate-limit-session"})
		return r
	}

	for i := 0; i < 2; i++ {
		if w := serve(handler, req()); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	if w := serve(handler, req()); w.Code != http.StatusTooManyRequests {
		t.Errorf("request 3: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}

// --- デフォルト設定値のテスト ---

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2.0 { // 120/60 = 2
		t.Errorf("GeneralRate = %f, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.AdminWriteRate != 0.5 { // 30/60
		t.Errorf("AdminWriteRate = %f, want 0.5", cfg.AdminWriteRate)
	}
	if cfg.AdminWriteBurst != 30 {
		t.Errorf("AdminWriteBurst = %d, want 30", cfg.AdminWriteBurst)
	}
}
