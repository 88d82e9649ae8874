package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const validCSRFToken = "3c1f9e7a5b2d4c6e8f0a1b3c5d7e9f1a"

func newCSRFTestHandler(called *bool) http.Handler {
	return NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func csrfCookieFrom(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFMiddleware_SafeMethodsSkipValidation(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			w := httptest.NewRecorder()
			newCSRFTestHandler(&called).ServeHTTP(w, httptest.NewRequest(method, "/dashboard/categories", nil))

			if !called {
				t.Error("next handler should be called for safe methods")
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestCSRFMiddleware_StateChangingRequests(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		cookie     string
		header     string
		wantStatus int
	}{
		{"POST without cookie", http.MethodPost, "", validCSRFToken, http.StatusForbidden},
		{"POST without header", http.MethodPost, validCSRFToken, "", http.StatusForbidden},
		{"POST with mismatched token", http.MethodPost, validCSRFToken, "forged", http.StatusForbidden},
		{"POST with matching token", http.MethodPost, validCSRFToken, validCSRFToken, http.StatusOK},
		{"PUT with matching token", http.MethodPut, validCSRFToken, validCSRFToken, http.StatusOK},
		{"PATCH without token", http.MethodPatch, "", "", http.StatusForbidden},
		{"DELETE without token", http.MethodDelete, "", "", http.StatusForbidden},
		{"DELETE with matching token", http.MethodDelete, validCSRFToken, validCSRFToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/categories", strings.NewReader(`{"name":"Formas"}`))
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}

			called := false
			w := httptest.NewRecorder()
			newCSRFTestHandler(&called).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("next handler called = %v", called)
			}
		})
	}
}

func TestCSRFMiddleware_GETIssuesCookieOnce(t *testing.T) {
	called := false
	h := NewCSRFMiddleware(CSRFConfig{CookieSecure: true, CookieDomain: "pequemaths.example"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	c := csrfCookieFrom(w)
	if c == nil {
		t.Fatal("expected csrf_token cookie on first GET")
	}
	if len(c.Value) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(c.Value))
	}
	if c.HttpOnly {
		t.Error("csrf cookie must be readable from JavaScript")
	}
	if !c.Secure || c.Domain != "pequemaths.example" || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes = %+v", c)
	}

	// 既存のCookieは置き換えない
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: validCSRFToken})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if csrfCookieFrom(w) != nil {
		t.Error("existing csrf cookie should not be replaced")
	}
	if !called {
		t.Error("next handler should be called")
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{})

	t.Run("issues a new token", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		c := csrfCookieFrom(w)
		if c == nil || body["token"] != c.Value {
			t.Errorf("token %q should match the cookie %+v", body["token"], c)
		}
	})

	t.Run("returns the existing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: validCSRFToken})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["token"] != validCSRFToken {
			t.Errorf("token = %q, want %q", body["token"], validCSRFToken)
		}
		if csrfCookieFrom(w) != nil {
			t.Error("existing cookie should not be reissued")
		}
	})
}
