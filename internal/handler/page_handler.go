package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pequemaths/internal/admin"
	"github.com/hitoshi/pequemaths/internal/game"
	"github.com/hitoshi/pequemaths/internal/middleware"
	"github.com/hitoshi/pequemaths/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// gamePageSlugs はゲームページのURLとゲーム種別の対応。
var gamePageSlugs = map[string]game.Kind{
	"formas":                      game.KindShapes,
	"memoria":                     game.KindMemory,
	"suma-saltarina":              game.KindAddition,
	"multiplicaciones-divisiones": game.KindMultiplyDivide,
}

// PageConfig はページ描画に必要な公開設定。
type PageConfig struct {
	FirebaseProjectID string
	FirebaseWebAPIKey string
}

// gameLink はトップページのゲームへのリンク。
type gameLink struct {
	Slug  string
	Title string
}

// pageData はテンプレートに渡す値。
type pageData struct {
	Title             string
	User              *model.Identity
	FirebaseProjectID string
	FirebaseWebAPIKey string

	Games         []gameLink
	Game          *game.Info
	Users         []*model.UserRecord
	NextPageToken string
	Categories    []*model.Category
	Stats         *admin.UserStats
}

// PageHandler はサーバーサイドで描画するHTMLページのハンドラー。
// アクセス制御はルーター側のRequireLoginPage/RequireAdminPageが行う。
type PageHandler struct {
	admin      AdminServiceInterface
	categories CategoryServiceInterface
	games      GameServiceInterface
	config     PageConfig
	pages      map[string]*template.Template
}

// NewPageHandler はテンプレートを読み込んでPageHandlerを生成する。
func NewPageHandler(adminSvc AdminServiceInterface, categories CategoryServiceInterface, games GameServiceInterface, config PageConfig) (*PageHandler, error) {
	names := []string{"home", "login", "signup", "profile", "dashboard", "users", "categories", "analytics", "game"}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}

	return &PageHandler{
		admin:      adminSvc,
		categories: categories,
		games:      games,
		config:     config,
		pages:      pages,
	}, nil
}

// Home はトップページを描画する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	titles := make(map[game.Kind]string)
	for _, info := range h.games.Catalog() {
		titles[info.Kind] = info.Title
	}
	var links []gameLink
	for _, slug := range []string{"formas", "memoria", "suma-saltarina", "multiplicaciones-divisiones"} {
		if title, ok := titles[gamePageSlugs[slug]]; ok {
			links = append(links, gameLink{Slug: slug, Title: title})
		}
	}

	data := h.newPageData(r, "Inicio")
	data.Games = links
	h.render(w, r, "home", data)
}

// Login はログインページを描画する。ログイン済みならトップへ戻す。
// GET /log-in
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.IdentityFromContext(r.Context()) != nil {
		http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
		return
	}
	h.render(w, r, "login", h.newPageData(r, "Iniciar sesión"))
}

// SignUp は登録ページを描画する。
// GET /sign-up
func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "signup", h.newPageData(r, "Crear cuenta"))
}

// Profile はログイン中のユーザーのプロフィールを描画する。
// GET /profile
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "profile", h.newPageData(r, "Perfil"))
}

// Dashboard は管理者ダッシュボードを描画する。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard", h.newPageData(r, "Dashboard"))
}

// Users はユーザー一覧ページを描画する。/adminも同じページを使う。
// GET /dashboard/users, GET /admin
func (h *PageHandler) Users(w http.ResponseWriter, r *http.Request) {
	page, err := h.admin.ListUsers(r.Context(), r.URL.Query().Get("pageToken"), 0)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := h.newPageData(r, "Usuarios")
	data.Users = page.Users
	data.NextPageToken = page.NextPageToken
	h.render(w, r, "users", data)
}

// Categories はカテゴリ管理ページを描画する。
// GET /dashboard/categories
func (h *PageHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := h.newPageData(r, "Categorías")
	data.Categories = categories
	h.render(w, r, "categories", data)
}

// Analytics はユーザー数の集計ページを描画する。
// GET /dashboard/analytics
func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.CountUsers(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := h.newPageData(r, "Analítica")
	data.Stats = stats
	h.render(w, r, "analytics", data)
}

// Game はゲームページを描画する。
// GET /juegos/{slug}
func (h *PageHandler) Game(w http.ResponseWriter, r *http.Request) {
	kind, ok := gamePageSlugs[chi.URLParam(r, "slug")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	for _, info := range h.games.Catalog() {
		if info.Kind == kind {
			data := h.newPageData(r, info.Title)
			data.Game = &info
			h.render(w, r, "game", data)
			return
		}
	}
	http.NotFound(w, r)
}

func (h *PageHandler) newPageData(r *http.Request, title string) *pageData {
	return &pageData{
		Title:             title,
		User:              middleware.IdentityFromContext(r.Context()),
		FirebaseProjectID: h.config.FirebaseProjectID,
		FirebaseWebAPIKey: h.config.FirebaseWebAPIKey,
	}
}

// render はバッファに描画してから書き込む。途中で失敗した場合は500を返す。
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, data *pageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *PageHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "failed to render page",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, "Ocurrió un error interno.", http.StatusInternalServerError)
}
