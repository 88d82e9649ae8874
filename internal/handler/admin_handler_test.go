package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hitoshi/pequemaths/internal/admin"
	"github.com/hitoshi/pequemaths/internal/model"
)

// --- モック定義 ---

// mockAdminService はAdminServiceInterfaceのモック実装。
type mockAdminService struct {
	listUsersFn  func(ctx context.Context, pageToken string, limit int) (*model.UserPage, error)
	setAdminFn   func(ctx context.Context, uid string, makeAdmin bool) error
	countUsersFn func(ctx context.Context) (*admin.UserStats, error)
}

func (m *mockAdminService) ListUsers(ctx context.Context, pageToken string, limit int) (*model.UserPage, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, pageToken, limit)
	}
	return &model.UserPage{}, nil
}

func (m *mockAdminService) SetAdmin(ctx context.Context, uid string, makeAdmin bool) error {
	if m.setAdminFn != nil {
		return m.setAdminFn(ctx, uid, makeAdmin)
	}
	return nil
}

func (m *mockAdminService) CountUsers(ctx context.Context) (*admin.UserStats, error) {
	if m.countUsersFn != nil {
		return m.countUsersFn(ctx)
	}
	return &admin.UserStats{}, nil
}

// --- GET /api/admin/users ---

func TestAdminHandler_ListUsers(t *testing.T) {
	svc := &mockAdminService{
		listUsersFn: func(ctx context.Context, pageToken string, limit int) (*model.UserPage, error) {
			if pageToken != "next-1" || limit != 50 {
				t.Errorf("pageToken=%q limit=%d, want next-1 50", pageToken, limit)
			}
			return &model.UserPage{
				Users: []*model.UserRecord{
					{UID: "abc123", Email: "ana@example.com", DisplayName: "Ana", Admin: true},
					{UID: "def456", Email: "beto@example.com"},
				},
				NextPageToken: "next-2",
			}, nil
		},
	}
	h := NewAdminHandler(svc)

	w := httptest.NewRecorder()
	h.ListUsers(w, httptest.NewRequest(http.MethodGet, "/api/admin/users?pageToken=next-1&limit=50", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	got := decodeBody[listUsersResponse](t, w)
	want := listUsersResponse{
		Users: []adminUserResponse{
			{UID: "abc123", Email: "ana@example.com", DisplayName: "Ana", Admin: true},
			{UID: "def456", Email: "beto@example.com"},
		},
		NextPageToken: "next-2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestAdminHandler_ListUsers_EmptyPageOmitsToken(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{})

	w := httptest.NewRecorder()
	h.ListUsers(w, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	raw := strings.TrimSpace(w.Body.String())
	if raw != `{"users":[]}` {
		t.Errorf("body = %s, want {\"users\":[]}", raw)
	}
}

func TestAdminHandler_ListUsers_InvalidLimit(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{
		listUsersFn: func(ctx context.Context, pageToken string, limit int) (*model.UserPage, error) {
			t.Error("ListUsers should not be called")
			return nil, nil
		},
	})

	for _, q := range []string{"limit=abc", "limit=0", "limit=-5"} {
		w := httptest.NewRecorder()
		h.ListUsers(w, httptest.NewRequest(http.MethodGet, "/api/admin/users?"+q, nil))
		assertSimpleError(t, w, http.StatusBadRequest)
	}
}

func TestAdminHandler_ListUsers_ServiceError(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{
		listUsersFn: func(ctx context.Context, pageToken string, limit int) (*model.UserPage, error) {
			return nil, errors.New("platform down")
		},
	})

	w := httptest.NewRecorder()
	h.ListUsers(w, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	if msg := assertSimpleError(t, w, http.StatusInternalServerError); strings.Contains(msg, "platform down") {
		t.Errorf("internal error detail leaked: %q", msg)
	}
}

// --- POST /api/admin/set-admin ---

func TestAdminHandler_SetAdmin(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"grant", `{"uid":"abc123","makeAdmin":true}`, true},
		{"revoke", `{"uid":"abc123","makeAdmin":false}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := NewAdminHandler(&mockAdminService{
				setAdminFn: func(ctx context.Context, uid string, makeAdmin bool) error {
					called = true
					if uid != "abc123" || makeAdmin != tt.want {
						t.Errorf("SetAdmin(%q, %v), want (abc123, %v)", uid, makeAdmin, tt.want)
					}
					return nil
				},
			})

			w := httptest.NewRecorder()
			h.SetAdmin(w, httptest.NewRequest(http.MethodPost, "/api/admin/set-admin", strings.NewReader(tt.body)))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if body := decodeBody[map[string]bool](t, w); !body["ok"] {
				t.Errorf("body = %v, want ok:true", body)
			}
			if !called {
				t.Error("expected SetAdmin to be called")
			}
		})
	}
}

func TestAdminHandler_SetAdmin_BadRequest(t *testing.T) {
	bodies := []string{
		``,
		`{}`,
		`{"uid":"abc123"}`,
		`{"makeAdmin":true}`,
		`{"uid":"","makeAdmin":true}`,
		`{"uid":"abc123","makeAdmin":"true"}`,
	}
	h := NewAdminHandler(&mockAdminService{
		setAdminFn: func(ctx context.Context, uid string, makeAdmin bool) error {
			t.Errorf("SetAdmin should not be called (uid=%q)", uid)
			return nil
		},
	})
	for _, body := range bodies {
		w := httptest.NewRecorder()
		h.SetAdmin(w, httptest.NewRequest(http.MethodPost, "/api/admin/set-admin", strings.NewReader(body)))
		assertSimpleError(t, w, http.StatusBadRequest)
	}
}

func TestAdminHandler_SetAdmin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown user", admin.ErrUserNotFound, http.StatusNotFound},
		{"platform failure", errors.New("quota exceeded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAdminHandler(&mockAdminService{
				setAdminFn: func(ctx context.Context, uid string, makeAdmin bool) error {
					return tt.err
				},
			})
			w := httptest.NewRecorder()
			h.SetAdmin(w, httptest.NewRequest(http.MethodPost, "/api/admin/set-admin",
				strings.NewReader(`{"uid":"ghost","makeAdmin":true}`)))
			assertSimpleError(t, w, tt.status)
		})
	}
}

// --- GET /api/admin/analytics ---

func TestAdminHandler_Analytics(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{
		countUsersFn: func(ctx context.Context) (*admin.UserStats, error) {
			return &admin.UserStats{Total: 12, Admins: 2}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Analytics(w, httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := decodeBody[analyticsResponse](t, w); got != (analyticsResponse{TotalUsers: 12, AdminUsers: 2}) {
		t.Errorf("response = %+v", got)
	}
}

func TestAdminHandler_Analytics_ServiceError(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{
		countUsersFn: func(ctx context.Context) (*admin.UserStats, error) {
			return nil, errors.New("boom")
		},
	})

	w := httptest.NewRecorder()
	h.Analytics(w, httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil))
	assertSimpleError(t, w, http.StatusInternalServerError)
}
