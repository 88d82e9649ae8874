package middleware

import (
	"net/http"
)

const (
	// LoginPath は未ログイン時のリダイレクト先。
	LoginPath = "/log-in"
	// HomePath は権限不足時のリダイレクト先。
	HomePath = "/"
)

// RequireLoginPage はログイン済みでないリクエストをログインページへリダイレクトする。
func RequireLoginPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminPage は未ログインならログインページへ、管理者でなければトップページへリダイレクトする。
func RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())
		if ident == nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		if !ident.Admin {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSessionAPI はログイン済みでないAPIリクエストに401を返す。
func RequireSessionAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			WriteUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminAPI は管理者でないAPIリクエストに401を返す。
// 未ログインと権限不足は区別しない。
func RequireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())
		if ident == nil || !ident.Admin {
			WriteUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
