package middleware

import "net/http"

// contentSecurityPolicy はページが読み込めるリソースの制限。
// ブラウザ側のFirebase Auth SDKはgstaticから読み込み、Googleのエンドポイントと通信する。
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://www.gstatic.com; " +
	"connect-src 'self' https://identitytoolkit.googleapis.com https://securetoken.googleapis.com; " +
	"frame-src https://*.firebaseapp.com; " +
	"img-src 'self' data: https://lh3.googleusercontent.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"frame-ancestors 'none'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			next.ServeHTTP(w, r)
		})
	}
}
