// Package auth はセッションCookieの検証とセッションの発行・更新・破棄を提供する。
// トークンの署名検証や失効管理はIDプラットフォームに委譲する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/pequemaths/internal/identity"
	"github.com/hitoshi/pequemaths/internal/model"
)

var (
	// ErrNoSession はセッションCookieが存在しない場合のエラー。
	ErrNoSession = errors.New("auth: no session")
	// ErrInvalidSession はセッションCookieの検証に失敗した場合のエラー。
	ErrInvalidSession = errors.New("auth: invalid session")
	// ErrInvalidIDToken はログイン時のIDトークン検証に失敗した場合のエラー。
	ErrInvalidIDToken = errors.New("auth: invalid id token")
	// ErrStaleSignIn はサインインから時間が経ちすぎている場合のエラー。
	ErrStaleSignIn = errors.New("auth: recent sign-in required")
)

// recentSignInWindow はセッションCookie発行に必要なサインインからの最大経過時間。
const recentSignInWindow = 5 * time.Minute

// SessionPlatform はセッションの発行・更新・破棄に必要なIDプラットフォームの操作。
type SessionPlatform interface {
	VerifyIDToken(ctx context.Context, idToken string) (*identity.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	CustomToken(ctx context.Context, uid string, claims map[string]any) (string, error)
	ExchangeCustomToken(ctx context.Context, customToken string) (string, error)
	GetUser(ctx context.Context, uid string) (*model.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge time.Duration // セッションCookieの有効期間
}

// Service はセッションに関するビジネスロジックを提供する。
type Service struct {
	platform SessionPlatform
	verifier *Verifier
	config   ServiceConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(platform SessionPlatform, verifier *Verifier, config ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		platform: platform,
		verifier: verifier,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Login はクライアントがサインインで得たIDトークンからセッションCookieを発行する。
// サインインから5分以上経過したトークンは受け付けない。
func (s *Service) Login(ctx context.Context, idToken string) (string, error) {
	if idToken == "" {
		return "", ErrInvalidIDToken
	}

	tok, err := s.platform.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if tok.AuthTime.IsZero() || s.now().Sub(tok.AuthTime) > recentSignInWindow {
		return "", ErrStaleSignIn
	}

	cookie, err := s.platform.SessionCookie(ctx, idToken, s.config.SessionMaxAge)
	if err != nil {
		return "", fmt.Errorf("failed to create session cookie: %w", err)
	}

	s.logger.InfoContext(ctx, "session created", slog.String("uid", tok.UID))
	return cookie, nil
}

// Refresh は現在のセッションを検証し、ユーザーの最新のカスタムクレームを反映した
// 新しいセッションCookieを発行する。
// 流れ: 検証 → ユーザー取得 → カスタムトークン発行 → IDトークンへ交換 → セッションCookie発行。
func (s *Service) Refresh(ctx context.Context, cookie string) (string, error) {
	if cookie == "" {
		return "", ErrNoSession
	}

	ident := s.verifier.VerifySession(ctx, cookie)
	if ident == nil {
		return "", ErrInvalidSession
	}

	user, err := s.platform.GetUser(ctx, ident.UID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return "", ErrInvalidSession
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	customToken, err := s.platform.CustomToken(ctx, user.UID, user.CustomClaims)
	if err != nil {
		return "", fmt.Errorf("failed to mint custom token: %w", err)
	}

	idToken, err := s.platform.ExchangeCustomToken(ctx, customToken)
	if err != nil {
		return "", fmt.Errorf("failed to exchange custom token: %w", err)
	}

	newCookie, err := s.platform.SessionCookie(ctx, idToken, s.config.SessionMaxAge)
	if err != nil {
		return "", fmt.Errorf("failed to create session cookie: %w", err)
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("uid", user.UID),
		slog.Bool("admin", user.Admin),
	)
	return newCookie, nil
}

// Logout はセッションが有効な場合にユーザーのリフレッシュトークンを失効させる。
// Cookieの削除は呼び出し元が常に行う。
func (s *Service) Logout(ctx context.Context, cookie string) error {
	ident := s.verifier.VerifySession(ctx, cookie)
	if ident == nil {
		return nil
	}

	if err := s.platform.RevokeRefreshTokens(ctx, ident.UID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("uid", ident.UID))
	return nil
}
