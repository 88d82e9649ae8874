// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pequemaths/internal/auth"
	"github.com/hitoshi/pequemaths/internal/middleware"
)

// SessionServiceInterface はセッションハンドラーが必要とするサービスインターフェース。
type SessionServiceInterface interface {
	Login(ctx context.Context, idToken string) (string, error)
	Refresh(ctx context.Context, cookie string) (string, error)
	Logout(ctx context.Context, cookie string) error
}

// SessionHandlerConfig はセッションCookieの属性。
type SessionHandlerConfig struct {
	CookieName   string
	CookieDomain string
	CookieSecure bool
	MaxAge       int // セッションCookieの有効期間（秒）
}

// SessionHandler はセッションCookieの発行・更新・破棄を行うHTTPハンドラー。
type SessionHandler struct {
	service SessionServiceInterface
	config  SessionHandlerConfig
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface, config SessionHandlerConfig) *SessionHandler {
	if config.CookieName == "" {
		config.CookieName = middleware.DefaultSessionCookieName
	}
	return &SessionHandler{
		service: service,
		config:  config,
	}
}

type loginRequest struct {
	IDToken string `json:"idToken"`
}

// Login はIDトークンからセッションCookieを発行する。
// POST /api/sessionLogin
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req, false); err != nil || req.IDToken == "" {
		middleware.WriteSimpleError(w, http.StatusBadRequest, "Missing idToken")
		return
	}

	cookie, err := h.service.Login(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidIDToken) || errors.Is(err, auth.ErrStaleSignIn) {
			middleware.WriteUnauthorized(w)
			return
		}
		slog.ErrorContext(r.Context(), "failed to create session", slog.String("error", err.Error()))
		middleware.WriteSimpleError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.setSessionCookie(w, cookie)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Refresh は現在のセッションを最新のカスタムクレームで再発行する。
// POST /api/refresh-session
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.service.Refresh(r.Context(), h.sessionCookie(r))
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) || errors.Is(err, auth.ErrInvalidSession) {
			middleware.WriteUnauthorized(w)
			return
		}
		slog.ErrorContext(r.Context(), "failed to refresh session", slog.String("error", err.Error()))
		middleware.WriteSimpleError(w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	h.setSessionCookie(w, cookie)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Logout はリフレッシュトークンを失効させ、セッションCookieを削除する。
// POST /api/sessionLogout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := h.sessionCookie(r); raw != "" {
		if err := h.service.Logout(r.Context(), raw); err != nil {
			// 失効に失敗してもCookieはクリアする
			slog.WarnContext(r.Context(), "failed to revoke session", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
}

// sessionResponse はGET /api/sessionのレスポンス。
type sessionResponse struct {
	UID     string `json:"uid"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Admin   bool   `json:"admin"`
}

// debugSessionResponse はGET /api/debug/sessionのレスポンス。
type debugSessionResponse struct {
	sessionResponse
	ExpiresAt int64          `json:"expiresAt"`
	Claims    map[string]any `json:"claims"`
}

// Me は現在のセッションのユーザー情報を返す。
// GET /api/session
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())
	if ident == nil {
		middleware.WriteUnauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		UID:     ident.UID,
		Email:   ident.Email,
		Name:    ident.Name,
		Picture: ident.Picture,
		Admin:   ident.Admin,
	})
}

// Debug は検証済みクレームをすべて返す。DEBUG_ENDPOINTSが有効な場合のみルーティングされる。
// GET /api/debug/session
func (h *SessionHandler) Debug(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())
	if ident == nil {
		middleware.WriteUnauthorized(w)
		return
	}

	claims := ident.Claims
	if claims == nil {
		claims = map[string]any{}
	}
	writeJSON(w, http.StatusOK, debugSessionResponse{
		sessionResponse: sessionResponse{
			UID:     ident.UID,
			Email:   ident.Email,
			Name:    ident.Name,
			Picture: ident.Picture,
			Admin:   ident.Admin,
		},
		ExpiresAt: ident.ExpiresAt.Unix(),
		Claims:    claims,
	})
}

func (h *SessionHandler) sessionCookie(r *http.Request) string {
	c, err := r.Cookie(h.config.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.MaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
