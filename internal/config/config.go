// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// セッションCookieの有効期間としてIDプラットフォームが受け付ける範囲（秒）。
const (
	minSessionCookieMaxAge = 5 * 60
	maxSessionCookieMaxAge = 14 * 24 * 60 * 60
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Firebase
	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID,required,notEmpty"`
	FirebaseClientEmail string `env:"FIREBASE_CLIENT_EMAIL"`
	FirebasePrivateKey  string `env:"FIREBASE_PRIVATE_KEY"`
	FirebaseWebAPIKey   string `env:"FIREBASE_WEB_API_KEY"`

	// Session
	SessionCookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"__session"`
	SessionCookieMaxAge int    `env:"SESSION_COOKIE_MAX_AGE" envDefault:"28800"` // 秒

	// Rate Limit（req/min）
	RateLimitGeneral    int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAdminWrite int `env:"RATE_LIMIT_ADMIN_WRITE" envDefault:"30"`

	// Game
	GameSessionTTL    time.Duration `env:"GAME_SESSION_TTL" envDefault:"30m"`
	GameSweepInterval time.Duration `env:"GAME_SWEEP_INTERVAL" envDefault:"1m"`
	GameMaxSessions   int           `env:"GAME_MAX_SESSIONS" envDefault:"10000"`

	// Server
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Cookie
	CookieSecure bool   `env:"-"`
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS（カンマ区切り。空の場合は同一オリジンのみ）
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Debug / Logging
	DebugEndpoints bool   `env:"DEBUG_ENDPOINTS" envDefault:"false"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// 環境変数ではエスケープされた改行で渡される
	cfg.FirebasePrivateKey = strings.ReplaceAll(cfg.FirebasePrivateKey, `\n`, "\n")
	cfg.CookieSecure = cfg.IsProduction()

	if cfg.SessionCookieMaxAge < minSessionCookieMaxAge || cfg.SessionCookieMaxAge > maxSessionCookieMaxAge {
		return nil, fmt.Errorf("SESSION_COOKIE_MAX_AGE must be between %d and %d seconds, got %d",
			minSessionCookieMaxAge, maxSessionCookieMaxAge, cfg.SessionCookieMaxAge)
	}
	if cfg.RateLimitGeneral <= 0 || cfg.RateLimitAdminWrite <= 0 {
		return nil, fmt.Errorf("rate limits must be positive")
	}
	if cfg.GameSessionTTL <= 0 || cfg.GameSweepInterval <= 0 {
		return nil, fmt.Errorf("GAME_SESSION_TTL and GAME_SWEEP_INTERVAL must be positive")
	}
	if cfg.GameMaxSessions <= 0 {
		return nil, fmt.Errorf("GAME_MAX_SESSIONS must be positive, got %d", cfg.GameMaxSessions)
	}

	return cfg, nil
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SessionMaxAge はセッションCookieの有効期間を返す。
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionCookieMaxAge) * time.Second
}

// HasServiceAccount はサービスアカウントの資格情報が設定されているかどうかを返す。
// 未設定の場合はアプリケーションデフォルト認証情報を使う。
func (c *Config) HasServiceAccount() bool {
	return c.FirebaseClientEmail != "" && c.FirebasePrivateKey != ""
}
