// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/pequemaths/internal/model"
)

// DefaultSessionCookieName はセッションCookieの名前のデフォルト値。
const DefaultSessionCookieName = "__session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var identityContextKey = contextKey("identity")

// SessionResolver はCookie値から呼び出し元を解決するインターフェース。
// auth.Verifierが実装する。検証に失敗した場合はnilを返す。
type SessionResolver interface {
	VerifySession(ctx context.Context, raw string) *model.Identity
}

// NewSessionMiddleware はセッションCookieを検証し、
// 解決したIdentityをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証でもリクエストは拒否しない。拒否はRequire系のミドルウェアが行う。
func NewSessionMiddleware(resolver SessionResolver, cookieName string) func(next http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw string
			if cookie, err := r.Cookie(cookieName); err == nil {
				raw = cookie.Value
			}

			ident := resolver.VerifySession(r.Context(), raw)
			if ident == nil {
				next.ServeHTTP(w, r)
				return
			}

			if info := requestInfoFromContext(r.Context()); info != nil {
				info.userID = ident.UID
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), ident)))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func IdentityFromContext(ctx context.Context) *model.Identity {
	ident, _ := ctx.Value(identityContextKey).(*model.Identity)
	return ident
}

// ContextWithIdentity はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, ident *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	ident := IdentityFromContext(ctx)
	if ident == nil || ident.UID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return ident.UID, nil
}
