// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/pequemaths/internal/model"
)

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// List は全カテゴリを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.Category, error)

	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// Create はカテゴリを作成する。
	Create(ctx context.Context, c *model.Category) error

	// Update はカテゴリの名前・スラッグ・説明・色を更新する。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, c *model.Category) (bool, error)

	// Delete は指定IDのカテゴリを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}
