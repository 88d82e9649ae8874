package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pequemaths/internal/category"
	"github.com/hitoshi/pequemaths/internal/middleware"
	"github.com/hitoshi/pequemaths/internal/model"
)

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	List(ctx context.Context) ([]*model.Category, error)
	Get(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, in category.Input) (*model.Category, error)
	Update(ctx context.Context, id string, in category.Input) (*model.Category, error)
	Delete(ctx context.Context, id string) error
}

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// categoryResponse はカテゴリ情報のAPIレスポンス。
type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCategory はカテゴリを1件返す。
// GET /api/categories/{id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// CreateCategory はカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in category.Input
	if err := decodeJSONBody(w, r, &in, false); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	c, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// UpdateCategory はカテゴリを更新する。
// PUT /api/categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in category.Input
	if err := decodeJSONBody(w, r, &in, false); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	c, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// DeleteCategory はカテゴリを削除する。
// DELETE /api/categories/{id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
