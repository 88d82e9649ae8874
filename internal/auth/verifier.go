package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/pequemaths/internal/identity"
	"github.com/hitoshi/pequemaths/internal/model"
)

// 検証結果のメトリクスラベル
const (
	VerificationOK      = "ok"
	VerificationMissing = "missing"
	VerificationInvalid = "invalid"
)

// SessionCookieVerifier はセッションCookieの検証をIDプラットフォームに委譲するインターフェース。
type SessionCookieVerifier interface {
	VerifySessionCookie(ctx context.Context, cookie string) (*identity.Token, error)
}

// VerificationRecorder はセッション検証結果を記録するインターフェース。
type VerificationRecorder interface {
	RecordSessionVerification(result string)
}

// Verifier はセッションCookieを検証し、呼び出し元のIdentityを解決する。
type Verifier struct {
	platform SessionCookieVerifier
	recorder VerificationRecorder
	logger   *slog.Logger
}

// NewVerifier はVerifierを生成する。recorderはnilでもよい。
func NewVerifier(platform SessionCookieVerifier, recorder VerificationRecorder, logger *slog.Logger) *Verifier {
	return &Verifier{
		platform: platform,
		recorder: recorder,
		logger:   logger,
	}
}

// VerifySession はCookie値を検証してIdentityを返す。
// 空文字列、形式不正、期限切れ、失効済み、署名不一致、プラットフォーム障害はすべてnilを返す。
// 失敗理由はデバッグログとメトリクスにのみ残す。
func (v *Verifier) VerifySession(ctx context.Context, raw string) *model.Identity {
	if raw == "" {
		v.record(VerificationMissing)
		return nil
	}

	tok, err := v.platform.VerifySessionCookie(ctx, raw)
	if err != nil || tok == nil {
		v.record(VerificationInvalid)
		if err != nil {
			v.logger.DebugContext(ctx, "session cookie verification failed",
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	v.record(VerificationOK)
	return IdentityFromToken(tok)
}

func (v *Verifier) record(result string) {
	if v.recorder != nil {
		v.recorder.RecordSessionVerification(result)
	}
}

// IdentityFromToken は検証済みトークンからIdentityを組み立てる。
// 管理者判定はmodel.AdminClaimのみを使う。
func IdentityFromToken(tok *identity.Token) *model.Identity {
	return &model.Identity{
		UID:       tok.UID,
		Email:     stringClaim(tok.Claims, "email"),
		Name:      stringClaim(tok.Claims, "name"),
		Picture:   stringClaim(tok.Claims, "picture"),
		Admin:     model.AdminClaim(tok.Claims),
		Claims:    tok.Claims,
		ExpiresAt: tok.ExpiresAt,
	}
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}
