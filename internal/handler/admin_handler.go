package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/pequemaths/internal/admin"
	"github.com/hitoshi/pequemaths/internal/middleware"
	"github.com/hitoshi/pequemaths/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, pageToken string, limit int) (*model.UserPage, error)
	SetAdmin(ctx context.Context, uid string, makeAdmin bool) error
	CountUsers(ctx context.Context) (*admin.UserStats, error)
}

// AdminHandler はユーザー管理のHTTPハンドラー。
// ルーター側でRequireAdminAPIを通過したリクエストのみが到達する。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type adminUserResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Admin       bool   `json:"admin"`
}

type listUsersResponse struct {
	Users         []adminUserResponse `json:"users"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
}

// ListUsers はユーザーを1ページ分返す。
// GET /api/admin/users?pageToken=...&limit=...
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.WriteSimpleError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	page, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("pageToken"), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list users", slog.String("error", err.Error()))
		middleware.WriteSimpleError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	resp := listUsersResponse{
		Users:         make([]adminUserResponse, 0, len(page.Users)),
		NextPageToken: page.NextPageToken,
	}
	for _, u := range page.Users {
		resp.Users = append(resp.Users, adminUserResponse{
			UID:         u.UID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Admin:       u.Admin,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type setAdminRequest struct {
	UID       string `json:"uid"`
	MakeAdmin *bool  `json:"makeAdmin"`
}

// SetAdmin はユーザーのadminクレームを付与または剥奪する。
// POST /api/admin/set-admin
func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req setAdminRequest
	if err := decodeJSONBody(w, r, &req, false); err != nil || req.UID == "" || req.MakeAdmin == nil {
		middleware.WriteSimpleError(w, http.StatusBadRequest, "Missing uid or makeAdmin")
		return
	}

	if err := h.service.SetAdmin(r.Context(), req.UID, *req.MakeAdmin); err != nil {
		if errors.Is(err, admin.ErrUserNotFound) {
			middleware.WriteSimpleError(w, http.StatusNotFound, "User not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to set admin claim",
			slog.String("target_uid", req.UID),
			slog.String("error", err.Error()),
		)
		middleware.WriteSimpleError(w, http.StatusInternalServerError, "Failed to set admin claim")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type analyticsResponse struct {
	TotalUsers int `json:"totalUsers"`
	AdminUsers int `json:"adminUsers"`
}

// Analytics はユーザー数と管理者数を返す。
// GET /api/admin/analytics
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CountUsers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count users", slog.String("error", err.Error()))
		middleware.WriteSimpleError(w, http.StatusInternalServerError, "Failed to load analytics")
		return
	}

	writeJSON(w, http.StatusOK, analyticsResponse{
		TotalUsers: stats.Total,
		AdminUsers: stats.Admins,
	})
}
