// Package identity は外部IDプラットフォームとの境界を提供する。
// セッションCookieの検証、カスタムクレームの読み書き、ユーザー列挙は
// すべてプラットフォームのSDKに委譲し、サーバー側では再実装しない。
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/pequemaths/internal/model"
)

// ErrUserNotFound はプラットフォーム上にユーザーが存在しない場合のエラー。
var ErrUserNotFound = errors.New("identity: user not found")

// ErrExchangeNotConfigured はカスタムトークン交換用のWeb APIキーが未設定の場合のエラー。
var ErrExchangeNotConfigured = errors.New("identity: custom token exchange is not configured")

// Token は検証済みトークン（セッションCookieまたはIDトークン）のデコード結果。
type Token struct {
	UID       string
	AuthTime  time.Time
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]any
}

// Platform はIDプラットフォームが提供する操作の集合。
// 本番はFirebasePlatform、テストはidentitytest.Platformが実装する。
type Platform interface {
	VerifySessionCookie(ctx context.Context, cookie string) (*Token, error)
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	CustomToken(ctx context.Context, uid string, claims map[string]any) (string, error)
	ExchangeCustomToken(ctx context.Context, customToken string) (string, error)
	GetUser(ctx context.Context, uid string) (*model.UserRecord, error)
	ListUsers(ctx context.Context, pageToken string, limit int) (*model.UserPage, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// unixTime はUNIX秒を時刻に変換する。0は時刻のゼロ値として扱う。
func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// unixMilliTime はUNIXミリ秒を時刻に変換する。0は時刻のゼロ値として扱う。
func unixMilliTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
