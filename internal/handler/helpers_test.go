package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pequemaths/internal/middleware"
	"github.com/hitoshi/pequemaths/internal/model"
)

// withIdentity はテスト用にリクエストコンテキストへ認証済みユーザーを注入するヘルパー。
func withIdentity(r *http.Request, uid string, admin bool) *http.Request {
	ctx := middleware.ContextWithIdentity(r.Context(), &model.Identity{UID: uid, Admin: admin})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// decodeBody はレスポンスボディをJSONとしてデコードする。
func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

// assertAPIErrorCode はレスポンスが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}

// assertSimpleError はレスポンスが {"error": msg} 形式であることを検証する。
func assertSimpleError(t *testing.T, w *httptest.ResponseRecorder, status int) string {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody[map[string]string](t, w)
	if body["error"] == "" {
		t.Errorf("expected error message, got %v", body)
	}
	return body["error"]
}
