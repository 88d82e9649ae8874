// Package app はPequeMathsサーバーの起動とワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/pequemaths/internal/admin"
	"github.com/hitoshi/pequemaths/internal/auth"
	"github.com/hitoshi/pequemaths/internal/category"
	"github.com/hitoshi/pequemaths/internal/config"
	"github.com/hitoshi/pequemaths/internal/database"
	"github.com/hitoshi/pequemaths/internal/game"
	"github.com/hitoshi/pequemaths/internal/handler"
	"github.com/hitoshi/pequemaths/internal/identity"
	"github.com/hitoshi/pequemaths/internal/logger"
	"github.com/hitoshi/pequemaths/internal/metrics"
	"github.com/hitoshi/pequemaths/internal/middleware"
	"github.com/hitoshi/pequemaths/internal/repository"
	"github.com/hitoshi/pequemaths/internal/security"
	"github.com/hitoshi/pequemaths/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("app_env", cfg.AppEnv),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続とFirebaseの初期化を行い、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := slog.Default()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 3. IDプラットフォーム
	exchanger := identity.NewTokenExchanger(&http.Client{Timeout: 10 * time.Second}, cfg.FirebaseWebAPIKey, log)
	platform, err := identity.NewFirebasePlatform(ctx, identity.FirebaseConfig{
		ProjectID:   cfg.FirebaseProjectID,
		ClientEmail: cfg.FirebaseClientEmail,
		PrivateKey:  cfg.FirebasePrivateKey,
	}, exchanger, log)
	if err != nil {
		return fmt.Errorf("failed to initialize identity platform: %w", err)
	}
	if !cfg.HasServiceAccount() {
		slog.Warn("FIREBASE_CLIENT_EMAIL/FIREBASE_PRIVATE_KEY not set, using application default credentials")
	}
	if cfg.FirebaseWebAPIKey == "" {
		slog.Warn("FIREBASE_WEB_API_KEY not set, session refresh will fail")
	}

	// 4. ドメインサービスの初期化
	verifier := auth.NewVerifier(platform, collector, log)
	sessionService := auth.NewService(platform, verifier, auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge()}, log)
	adminService := admin.NewService(platform, collector, log)

	categoryRepo := repository.NewPostgresCategoryRepo(db)
	categoryService := category.NewService(categoryRepo, security.NewTextSanitizer(), collector, log)

	gameStore := game.NewStore(cfg.GameSessionTTL, cfg.GameMaxSessions)
	gameService := game.NewService(gameStore, collector, log)

	// 5. バックグラウンドジョブ
	cleanupJob := cleanup.NewCleanupJob(gameStore, collector, log)
	cleanupJob.Interval = cfg.GameSweepInterval
	go cleanupJob.Start(ctx)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAdminWrite))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:             log,
		HTTPRecorder:       collector,
		HealthChecker:      db,
		MetricsHandler:     metrics.Handler(registry),
		SessionResolver:    verifier,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		SessionService: sessionService,
		SessionConfig: handler.SessionHandlerConfig{
			CookieName:   cfg.SessionCookieName,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
			MaxAge:       cfg.SessionCookieMaxAge,
		},
		DebugEndpoints: cfg.DebugEndpoints,

		AdminService:    adminService,
		CategoryService: categoryService,
		GameService:     gameService,
		PageConfig: handler.PageConfig{
			FirebaseProjectID: cfg.FirebaseProjectID,
			FirebaseWebAPIKey: cfg.FirebaseWebAPIKey,
		},
	}

	router, err := handler.NewRouter(deps)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	if cfg.DebugEndpoints {
		slog.Warn("debug endpoints enabled", slog.String("path", "/api/debug/session"))
	}

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	// クリーンアップジョブを止める
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はcategoriesスキーマのマイグレーションを適用し、適用後のバージョンをログに残す。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
