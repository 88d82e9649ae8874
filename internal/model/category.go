package model

import "time"

// DefaultCategoryColor はカテゴリ作成時に色が未指定の場合の既定値。
const DefaultCategoryColor = "#22c55e"

// Category はコンテンツ分類用のカテゴリを表す。
// Slugは名前から導出されるURL安全なキーで、一意性は保証しない。
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
