package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/pequemaths/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

const categoryColumns = `id, name, slug, description, color, created_at, updated_at`

// List は全カテゴリを作成日時の降順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*model.Category{}
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return c, nil
}

// Create はカテゴリを作成する。
func (r *PostgresCategoryRepo) Create(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, description, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Slug, c.Description, c.Color, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// Update はカテゴリを更新する。対象が存在しない場合はfalseを返す。
func (r *PostgresCategoryRepo) Update(ctx context.Context, c *model.Category) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories
		 SET name = $2, slug = $3, description = $4, color = $5, updated_at = $6
		 WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Description, c.Color, c.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update category: %w", err)
	}
	return affected(result)
}

// Delete は指定IDのカテゴリを削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}
	return affected(result)
}

func affected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
