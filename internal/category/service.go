// Package category は学習カテゴリの管理機能を提供する。
package category

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/pequemaths/internal/model"
)

// 入力値の上限（文字数）
const (
	MaxNameLength        = 80
	MaxDescriptionLength = 500
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-f]{6}|[0-9a-f]{3})$`)

// Repository はカテゴリの永続化インターフェース。
type Repository interface {
	List(ctx context.Context) ([]*model.Category, error)
	FindByID(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Sanitizer は入力テキストからマークアップを除去する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MutationRecorder はカテゴリの変更操作を記録する。
type MutationRecorder interface {
	RecordCategoryMutation(op string)
}

// Input はカテゴリの作成・更新リクエストの入力値。
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Service はカテゴリに関するビジネスロジックを提供する。
type Service struct {
	repo      Repository
	sanitizer Sanitizer
	recorder  MutationRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo Repository, sanitizer Sanitizer, recorder MutationRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// List は作成日時の新しい順にカテゴリを返す。
func (s *Service) List(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Get は指定IDのカテゴリを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Category, error) {
	if !isValidID(id) {
		return nil, model.NewCategoryNotFoundError(id)
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if c == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}
	return c, nil
}

// Create は入力値を検証してカテゴリを作成する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Category, error) {
	clean, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Category{
		ID:          uuid.New().String(),
		Name:        clean.Name,
		Slug:        Slugify(clean.Name),
		Description: clean.Description,
		Color:       clean.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.record("create")
	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", c.ID),
		slog.String("slug", c.Slug),
	)
	return c, nil
}

// Update は入力値を検証して既存カテゴリを更新する。スラッグは名前から再生成する。
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Category, error) {
	if !isValidID(id) {
		return nil, model.NewCategoryNotFoundError(id)
	}

	clean, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = clean.Name
	existing.Slug = Slugify(clean.Name)
	existing.Description = clean.Description
	existing.Color = clean.Color
	existing.UpdatedAt = s.now()

	found, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if !found {
		return nil, model.NewCategoryNotFoundError(id)
	}

	s.record("update")
	s.logger.InfoContext(ctx, "category updated", slog.String("category_id", id))
	return existing, nil
}

// Delete は指定IDのカテゴリを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return model.NewCategoryNotFoundError(id)
	}

	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if !found {
		return model.NewCategoryNotFoundError(id)
	}

	s.record("delete")
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// normalize は入力値の整形と検証を行う。
func (s *Service) normalize(in Input) (Input, error) {
	name := strings.TrimSpace(s.sanitizer.Sanitize(in.Name))
	if name == "" {
		return Input{}, model.NewValidationError("El nombre es obligatorio")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Input{}, model.NewValidationError(fmt.Sprintf("El nombre no puede superar %d caracteres", MaxNameLength))
	}

	desc := strings.TrimSpace(s.sanitizer.Sanitize(in.Description))
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return Input{}, model.NewValidationError(fmt.Sprintf("La descripción no puede superar %d caracteres", MaxDescriptionLength))
	}

	color := strings.ToLower(strings.TrimSpace(in.Color))
	if color == "" {
		color = model.DefaultCategoryColor
	}
	if !colorPattern.MatchString(color) {
		return Input{}, model.NewValidationError("El color debe tener el formato #rrggbb")
	}

	return Input{Name: name, Description: desc, Color: color}, nil
}

func (s *Service) record(op string) {
	if s.recorder != nil {
		s.recorder.RecordCategoryMutation(op)
	}
}

// isValidID はIDがUUID形式かを判定する。形式外のIDは存在しないものとして扱う。
func isValidID(id string) bool {
	return uuid.Validate(id) == nil
}
