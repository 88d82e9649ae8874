// Package admin は管理者向けのユーザー管理操作を提供する。
// ユーザーの保存とカスタムクレームはIDプラットフォームが保持する。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/hitoshi/pequemaths/internal/identity"
	"github.com/hitoshi/pequemaths/internal/model"
)

// MaxPageSize は1回のユーザー一覧取得で返す最大件数。
const MaxPageSize = 1000

// ErrUserNotFound は対象ユーザーが存在しない場合のエラー。
var ErrUserNotFound = errors.New("admin: user not found")

// UserDirectory はユーザー管理に必要なIDプラットフォームの操作。
type UserDirectory interface {
	GetUser(ctx context.Context, uid string) (*model.UserRecord, error)
	ListUsers(ctx context.Context, pageToken string, limit int) (*model.UserPage, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
}

// ClaimChangeRecorder は管理者クレームの変更を記録するインターフェース。
type ClaimChangeRecorder interface {
	RecordAdminClaimChange(granted bool)
}

// UserStats はユーザー数の集計結果。
type UserStats struct {
	Total  int
	Admins int
}

// Service は管理者向けユーザー管理のビジネスロジックを提供する。
type Service struct {
	directory UserDirectory
	recorder  ClaimChangeRecorder
	logger    *slog.Logger
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(directory UserDirectory, recorder ClaimChangeRecorder, logger *slog.Logger) *Service {
	return &Service{
		directory: directory,
		recorder:  recorder,
		logger:    logger,
	}
}

// ListUsers はユーザーを1ページ分返す。
// limitが0以下またはMaxPageSizeを超える場合はMaxPageSizeに丸める。
// 続きがある場合はNextPageTokenに継続トークンが入る。
func (s *Service) ListUsers(ctx context.Context, pageToken string, limit int) (*model.UserPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	page, err := s.directory.ListUsers(ctx, pageToken, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// GetUser はUIDでユーザーを取得する。
func (s *Service) GetUser(ctx context.Context, uid string) (*model.UserRecord, error) {
	u, err := s.directory.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// SetAdmin はユーザーのadminクレームを設定する。
// 現在のカスタムクレームを読み取り、adminだけを書き換えてから書き戻すため、
// 他のカスタムクレームは保持される。読み取りと書き込みの間に別の更新が入った場合は後勝ちとなる。
// 発行済みのセッションCookieは更新されるまで古い値を持ち続ける。
func (s *Service) SetAdmin(ctx context.Context, uid string, makeAdmin bool) error {
	u, err := s.GetUser(ctx, uid)
	if err != nil {
		return err
	}

	claims := make(map[string]any, len(u.CustomClaims)+1)
	maps.Copy(claims, u.CustomClaims)
	claims[model.AdminClaimKey] = makeAdmin

	if err := s.directory.SetCustomClaims(ctx, uid, claims); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set custom claims: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordAdminClaimChange(makeAdmin)
	}
	s.logger.InfoContext(ctx, "admin claim updated",
		slog.String("uid", uid),
		slog.Bool("admin", makeAdmin),
	)
	return nil
}

// CountUsers は全ページを走査してユーザー数と管理者数を集計する。
func (s *Service) CountUsers(ctx context.Context) (*UserStats, error) {
	stats := &UserStats{}
	pageToken := ""
	for {
		page, err := s.ListUsers(ctx, pageToken, MaxPageSize)
		if err != nil {
			return nil, err
		}
		for _, u := range page.Users {
			stats.Total++
			if u.Admin {
				stats.Admins++
			}
		}
		if page.NextPageToken == "" {
			return stats, nil
		}
		pageToken = page.NextPageToken
	}
}
