package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hitoshi/pequemaths/internal/model"
)

// FirebaseConfig はFirebase Admin SDKの初期化に必要な設定。
// ClientEmailとPrivateKeyが空の場合はアプリケーションデフォルト認証情報を使う。
type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// customTokenExchanger はカスタムトークンをIDトークンに交換する。
type customTokenExchanger interface {
	Exchange(ctx context.Context, customToken string) (string, error)
}

// FirebasePlatform はFirebase Authenticationを使ったPlatformの実装。
type FirebasePlatform struct {
	client    *auth.Client
	exchanger customTokenExchanger
	logger    *slog.Logger
}

var _ Platform = (*FirebasePlatform)(nil)

// NewFirebasePlatform はFirebase Admin SDKを初期化してFirebasePlatformを生成する。
func NewFirebasePlatform(ctx context.Context, cfg FirebaseConfig, exchanger customTokenExchanger, logger *slog.Logger) (*FirebasePlatform, error) {
	var opts []option.ClientOption
	if cfg.ClientEmail != "" && cfg.PrivateKey != "" {
		creds, err := serviceAccountJSON(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("Firebaseアプリの初期化に失敗しました: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("Firebase Authクライアントの初期化に失敗しました: %w", err)
	}

	return &FirebasePlatform{
		client:    client,
		exchanger: exchanger,
		logger:    logger,
	}, nil
}

// serviceAccountJSON は環境変数から受け取った認証情報をサービスアカウントJSONに組み立てる。
func serviceAccountJSON(cfg FirebaseConfig) ([]byte, error) {
	creds := map[string]string{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"client_email": cfg.ClientEmail,
		"private_key":  cfg.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	}
	b, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("サービスアカウント情報の生成に失敗しました: %w", err)
	}
	return b, nil
}

// VerifySessionCookie はセッションCookieの署名・有効期限・失効を検証する。
func (p *FirebasePlatform) VerifySessionCookie(ctx context.Context, cookie string) (*Token, error) {
	tok, err := p.client.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		return nil, err
	}
	return fromFirebaseToken(tok), nil
}

// VerifyIDToken はクライアントから受け取ったIDトークンを検証する。
func (p *FirebasePlatform) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	tok, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return fromFirebaseToken(tok), nil
}

// SessionCookie はIDトークンからセッションCookieを発行する。
func (p *FirebasePlatform) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	return p.client.SessionCookie(ctx, idToken, expiresIn)
}

// CustomToken は指定クレームを持つカスタムトークンを発行する。
func (p *FirebasePlatform) CustomToken(ctx context.Context, uid string, claims map[string]any) (string, error) {
	return p.client.CustomTokenWithClaims(ctx, uid, claims)
}

// ExchangeCustomToken はカスタムトークンをIDトークンに交換する。
func (p *FirebasePlatform) ExchangeCustomToken(ctx context.Context, customToken string) (string, error) {
	if p.exchanger == nil {
		return "", ErrExchangeNotConfigured
	}
	return p.exchanger.Exchange(ctx, customToken)
}

// GetUser はUIDでユーザーを取得する。存在しない場合はErrUserNotFoundを返す。
func (p *FirebasePlatform) GetUser(ctx context.Context, uid string) (*model.UserRecord, error) {
	u, err := p.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	rec := fromFirebaseUser(u)
	if rec == nil {
		return nil, ErrUserNotFound
	}
	return rec, nil
}

// ListUsers はユーザーを1ページ分取得する。
// pageTokenが空の場合は先頭ページを返す。
func (p *FirebasePlatform) ListUsers(ctx context.Context, pageToken string, limit int) (*model.UserPage, error) {
	pager := iterator.NewPager(p.client.Users(ctx, ""), limit, pageToken)

	var batch []*auth.ExportedUserRecord
	next, err := pager.NextPage(&batch)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	return toUserPage(batch, next), nil
}

// toUserPage は取得したバッチをUserPageに変換する。変換できないレコードは含めない。
func toUserPage(batch []*auth.ExportedUserRecord, next string) *model.UserPage {
	page := &model.UserPage{
		Users:         make([]*model.UserRecord, 0, len(batch)),
		NextPageToken: next,
	}
	for _, u := range batch {
		if u == nil {
			continue
		}
		if rec := fromFirebaseUser(u.UserRecord); rec != nil {
			page.Users = append(page.Users, rec)
		}
	}
	return page
}

// SetCustomClaims はユーザーのカスタムクレームを置き換える。
func (p *FirebasePlatform) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	err := p.client.SetCustomUserClaims(ctx, uid, claims)
	if auth.IsUserNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

// RevokeRefreshTokens はユーザーのリフレッシュトークンを失効させる。
// 失効以前に発行されたセッションCookieも検証に失敗するようになる。
func (p *FirebasePlatform) RevokeRefreshTokens(ctx context.Context, uid string) error {
	err := p.client.RevokeRefreshTokens(ctx, uid)
	if auth.IsUserNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

func fromFirebaseToken(tok *auth.Token) *Token {
	return &Token{
		UID:       tok.UID,
		AuthTime:  unixTime(tok.AuthTime),
		IssuedAt:  unixTime(tok.IssuedAt),
		ExpiresAt: unixTime(tok.Expires),
		Claims:    tok.Claims,
	}
}

func fromFirebaseUser(u *auth.UserRecord) *model.UserRecord {
	if u == nil || u.UserInfo == nil {
		return nil
	}
	rec := &model.UserRecord{
		UID:          u.UID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PhotoURL:     u.PhotoURL,
		Admin:        model.AdminClaim(u.CustomClaims),
		CustomClaims: u.CustomClaims,
		Disabled:     u.Disabled,
	}
	if u.UserMetadata != nil {
		rec.CreatedAt = unixMilliTime(u.UserMetadata.CreationTimestamp)
		rec.LastLoginAt = unixMilliTime(u.UserMetadata.LastLogInTimestamp)
	}
	return rec
}
