package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pequemaths/internal/middleware"
)

// HealthChecker はデータベースの疎通確認に使うインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger        *slog.Logger
	HTTPRecorder  middleware.HTTPRecorder
	HealthChecker HealthChecker
	// MetricsHandler が指定された場合は/metricsで公開する。
	MetricsHandler http.Handler

	// ミドルウェア依存
	SessionResolver    middleware.SessionResolver
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	CSRFConfig         middleware.CSRFConfig

	// セッション
	SessionService SessionServiceInterface
	SessionConfig  SessionHandlerConfig
	// DebugEndpoints がtrueの場合のみ/api/debug/sessionを公開する。
	DebugEndpoints bool

	AdminService    AdminServiceInterface
	CategoryService CategoryServiceInterface
	GameService     GameServiceInterface
	PageConfig      PageConfig
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → CSRF → RateLimit(General) → Require*
//
// /health、/metrics、/api/sessionLogoutはCSRFとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionHandler := NewSessionHandler(deps.SessionService, deps.SessionConfig)
	adminHandler := NewAdminHandler(deps.AdminService)
	categoryHandler := NewCategoryHandler(deps.CategoryService)
	gameHandler := NewGameHandler(deps.GameService)
	pageHandler, err := NewPageHandler(deps.AdminService, deps.CategoryService, deps.GameService, deps.PageConfig)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver, deps.SessionConfig.CookieName))

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// ログアウトはHTMLフォームから送信されるためCSRFヘッダーを要求しない。
	// セッションCookieはSameSite=Laxのため、クロスサイトのPOSTには付与されない。
	r.Post("/api/sessionLogout", sessionHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// --- セッション ---
		r.Post("/api/sessionLogin", sessionHandler.Login)
		r.Post("/api/refresh-session", sessionHandler.Refresh)
		r.With(middleware.RequireSessionAPI).Get("/api/session", sessionHandler.Me)
		if deps.DebugEndpoints {
			r.With(middleware.RequireSessionAPI).Get("/api/debug/session", sessionHandler.Debug)
		}

		// --- ゲーム（ログイン不要） ---
		r.Route("/api/games", func(r chi.Router) {
			r.Get("/", gameHandler.ListGames)
			r.Post("/{kind}/sessions", gameHandler.CreateSession)

			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", gameHandler.GetSession)
				r.Delete("/", gameHandler.DeleteSession)
				r.Post("/difficulty", gameHandler.SelectDifficulty)
				r.Post("/start", gameHandler.Start)
				r.Post("/answer", gameHandler.Answer)
				r.Post("/hint", gameHandler.Hint)
				r.Post("/continue", gameHandler.Continue)
				r.Post("/next-level", gameHandler.NextLevel)
				r.Post("/restart", gameHandler.Restart)
			})
		})

		// --- 管理API（管理者のみ、書き込みは専用レート制限を追加） ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminAPI)
			adminWrite := deps.RateLimiter.AdminWriteMiddleware()

			r.Route("/api/admin", func(r chi.Router) {
				r.Get("/users", adminHandler.ListUsers)
				r.With(adminWrite).Post("/set-admin", adminHandler.SetAdmin)
				r.Get("/analytics", adminHandler.Analytics)
			})

			r.Route("/api/categories", func(r chi.Router) {
				r.Get("/", categoryHandler.ListCategories)
				r.With(adminWrite).Post("/", categoryHandler.CreateCategory)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", categoryHandler.GetCategory)
					r.With(adminWrite).Put("/", categoryHandler.UpdateCategory)
					r.With(adminWrite).Delete("/", categoryHandler.DeleteCategory)
				})
			})
		})

		// --- ページ ---
		r.Get("/", pageHandler.Home)
		r.Get("/log-in", pageHandler.Login)
		r.Get("/sign-up", pageHandler.SignUp)
		r.Get("/juegos/{slug}", pageHandler.Game)

		r.With(middleware.RequireLoginPage).Get("/profile", pageHandler.Profile)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminPage)
			r.Get("/admin", pageHandler.Users)
			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", pageHandler.Dashboard)
				r.Get("/users", pageHandler.Users)
				r.Get("/categories", pageHandler.Categories)
				r.Get("/analytics", pageHandler.Analytics)
			})
		})
	})

	return r, nil
}

// healthHandler はデータベースへの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.ErrorContext(r.Context(), "health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
