// Package identitytest はテスト用のインメモリIDプラットフォームを提供する。
// セッションCookieとIDトークンはHS256署名のJWTとして発行し、
// カスタムクレームはトークンのトップレベルに展開する。
package identitytest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/pequemaths/internal/identity"
	"github.com/hitoshi/pequemaths/internal/model"
)

// トークン種別。typクレームに格納する。
const (
	typeSession = "session"
	typeID      = "id"
	typeCustom  = "custom"
)

// ErrInvalidToken は署名不正・期限切れ・種別違いのトークンに返すエラー。
var ErrInvalidToken = errors.New("identitytest: invalid token")

// ErrRevoked は失効済みのトークンに返すエラー。
var ErrRevoked = errors.New("identitytest: token revoked")

// reservedClaims はカスタムクレームとして上書きできないクレーム名。
var reservedClaims = map[string]bool{
	"sub": true, "uid": true, "iat": true, "exp": true, "auth_time": true, "typ": true,
}

// Platform はidentity.Platformのインメモリ実装。
type Platform struct {
	mu        sync.Mutex
	secret    []byte
	users     map[string]*model.UserRecord
	revokedAt map[string]time.Time

	// Now は現在時刻を返す。テストで時刻を固定する場合に差し替える。
	Now func() time.Time

	// 以下を設定すると対応する操作が常にそのエラーを返す。
	VerifyErr        error
	ListErr          error
	GetUserErr       error
	SetClaimsErr     error
	ExchangeErr      error
	RevokeErr        error
	SessionCookieErr error

	// SetClaimsCalls はSetCustomClaimsに渡されたクレームを記録する。
	SetClaimsCalls []map[string]any
	// RevokeCalls はRevokeRefreshTokensに渡されたUIDを記録する。
	RevokeCalls []string
}

var _ identity.Platform = (*Platform)(nil)

// New は空のPlatformを生成する。
func New() *Platform {
	return &Platform{
		secret:    []byte("identitytest-secret"),
		users:     make(map[string]*model.UserRecord),
		revokedAt: make(map[string]time.Time),
		Now:       time.Now,
	}
}

func (p *Platform) now() time.Time {
	return p.Now().Truncate(time.Second)
}

// AddUser はユーザーを登録する。CustomClaimsのadminからAdminを導出する。
func (p *Platform) AddUser(u model.UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u.CustomClaims = maps.Clone(u.CustomClaims)
	u.Admin = model.AdminClaim(u.CustomClaims)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = p.now()
	}
	p.users[u.UID] = &u
}

// IssueIDToken はユーザーの現在のカスタムクレームを持つIDトークンを発行する。
// authTimeはサインイン時刻として扱う。
func (p *Platform) IssueIDToken(uid string, authTime time.Time) (string, error) {
	p.mu.Lock()
	u, ok := p.users[uid]
	var claims map[string]any
	if ok {
		claims = maps.Clone(u.CustomClaims)
	}
	p.mu.Unlock()
	if !ok {
		return "", identity.ErrUserNotFound
	}
	return p.sign(typeID, uid, authTime, time.Hour, claims)
}

// IssueSessionCookie はユーザーの現在のカスタムクレームを持つセッションCookieを直接発行する。
func (p *Platform) IssueSessionCookie(uid string, expiresIn time.Duration) (string, error) {
	idToken, err := p.IssueIDToken(uid, p.now())
	if err != nil {
		return "", err
	}
	return p.SessionCookie(context.Background(), idToken, expiresIn)
}

// DecodeClaims は署名を検証せずにトークンのクレームを取り出す。
func (p *Platform) DecodeClaims(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// User はユーザーレコードのコピーを返す。
func (p *Platform) User(uid string) (model.UserRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[uid]
	if !ok {
		return model.UserRecord{}, false
	}
	cp := *u
	cp.CustomClaims = maps.Clone(u.CustomClaims)
	return cp, true
}

func (p *Platform) sign(typ, uid string, authTime time.Time, ttl time.Duration, custom map[string]any) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{}
	for k, v := range custom {
		if !reservedClaims[k] {
			claims[k] = v
		}
	}
	claims["typ"] = typ
	claims["sub"] = uid
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	if !authTime.IsZero() {
		claims["auth_time"] = authTime.Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *Platform) parse(raw, typ string) (*identity.Token, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if got, _ := claims["typ"].(string); got != typ {
		return nil, fmt.Errorf("%w: token type %q", ErrInvalidToken, got)
	}

	uid, _ := claims.GetSubject()
	tok := &identity.Token{UID: uid, Claims: map[string]any(claims)}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		tok.IssuedAt = iat.Time.UTC()
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		tok.ExpiresAt = exp.Time.UTC()
	}
	if at, ok := claims["auth_time"].(float64); ok {
		tok.AuthTime = time.Unix(int64(at), 0).UTC()
	}
	return tok, nil
}

// VerifySessionCookie はセッションCookieを検証し、失効も確認する。
func (p *Platform) VerifySessionCookie(_ context.Context, cookie string) (*identity.Token, error) {
	if p.VerifyErr != nil {
		return nil, p.VerifyErr
	}
	tok, err := p.parse(cookie, typeSession)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	revokedAt, revoked := p.revokedAt[tok.UID]
	_, exists := p.users[tok.UID]
	p.mu.Unlock()

	if !exists {
		return nil, identity.ErrUserNotFound
	}
	if revoked && !tok.IssuedAt.After(revokedAt) {
		return nil, ErrRevoked
	}
	return tok, nil
}

// VerifyIDToken はIDトークンを検証する。
func (p *Platform) VerifyIDToken(_ context.Context, idToken string) (*identity.Token, error) {
	if p.VerifyErr != nil {
		return nil, p.VerifyErr
	}
	return p.parse(idToken, typeID)
}

// SessionCookie はIDトークンのクレームを引き継いだセッションCookieを発行する。
func (p *Platform) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	if p.SessionCookieErr != nil {
		return "", p.SessionCookieErr
	}
	tok, err := p.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return p.sign(typeSession, tok.UID, tok.AuthTime, expiresIn, tok.Claims)
}

// CustomToken は指定クレームを持つカスタムトークンを発行する。
func (p *Platform) CustomToken(_ context.Context, uid string, claims map[string]any) (string, error) {
	return p.sign(typeCustom, uid, time.Time{}, time.Hour, claims)
}

// ExchangeCustomToken はカスタムトークンをIDトークンに交換する。
// サインイン時刻は交換時刻になる。
func (p *Platform) ExchangeCustomToken(_ context.Context, customToken string) (string, error) {
	if p.ExchangeErr != nil {
		return "", p.ExchangeErr
	}
	tok, err := p.parse(customToken, typeCustom)
	if err != nil {
		return "", err
	}
	return p.sign(typeID, tok.UID, p.now(), time.Hour, tok.Claims)
}

// GetUser はユーザーを取得する。
func (p *Platform) GetUser(_ context.Context, uid string) (*model.UserRecord, error) {
	if p.GetUserErr != nil {
		return nil, p.GetUserErr
	}
	u, ok := p.User(uid)
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

// ListUsers はUID順にユーザーを1ページ分返す。ページトークンは次の開始位置。
func (p *Platform) ListUsers(_ context.Context, pageToken string, limit int) (*model.UserPage, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("identitytest: invalid page token %q", pageToken)
		}
		start = n
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	uids := slices.Sorted(maps.Keys(p.users))
	page := &model.UserPage{Users: []*model.UserRecord{}}
	end := min(start+limit, len(uids))
	for i := start; i < end; i++ {
		u := *p.users[uids[i]]
		u.CustomClaims = maps.Clone(u.CustomClaims)
		page.Users = append(page.Users, &u)
	}
	if end < len(uids) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// SetCustomClaims はユーザーのカスタムクレームを置き換える。
func (p *Platform) SetCustomClaims(_ context.Context, uid string, claims map[string]any) error {
	if p.SetClaimsErr != nil {
		return p.SetClaimsErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[uid]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.CustomClaims = maps.Clone(claims)
	u.Admin = model.AdminClaim(u.CustomClaims)
	p.SetClaimsCalls = append(p.SetClaimsCalls, maps.Clone(claims))
	return nil
}

// RevokeRefreshTokens は現在時刻以前に発行されたセッションを失効させる。
func (p *Platform) RevokeRefreshTokens(_ context.Context, uid string) error {
	if p.RevokeErr != nil {
		return p.RevokeErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[uid]; !ok {
		return identity.ErrUserNotFound
	}
	p.revokedAt[uid] = p.now()
	p.RevokeCalls = append(p.RevokeCalls, uid)
	return nil
}
