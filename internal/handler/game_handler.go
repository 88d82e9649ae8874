package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pequemaths/internal/game"
	"github.com/hitoshi/pequemaths/internal/middleware"
	"github.com/hitoshi/pequemaths/internal/model"
)

// GameServiceInterface はゲームハンドラーが必要とするサービスインターフェース。
type GameServiceInterface interface {
	Catalog() []game.Info
	Create(ctx context.Context, kind game.Kind, d game.Difficulty) (game.View, error)
	Get(ctx context.Context, id string) (game.View, error)
	SelectDifficulty(ctx context.Context, id string, d game.Difficulty) (game.View, error)
	Start(ctx context.Context, id string) (game.View, error)
	Answer(ctx context.Context, id string, choice int) (game.View, error)
	Hint(ctx context.Context, id string) (game.View, error)
	Continue(ctx context.Context, id string) (game.View, error)
	NextLevel(ctx context.Context, id string) (game.View, error)
	Restart(ctx context.Context, id string) (game.View, error)
	Delete(ctx context.Context, id string) error
}

// GameHandler はミニゲームのHTTPハンドラー。
type GameHandler struct {
	service GameServiceInterface
}

// NewGameHandler はGameHandlerを生成する。
func NewGameHandler(service GameServiceInterface) *GameHandler {
	return &GameHandler{service: service}
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

type answerRequest struct {
	Choice *int `json:"choice"`
}

// ListGames はゲームの一覧を返す。
// GET /api/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"games": h.service.Catalog()})
}

// CreateSession はゲームセッションを作成する。
// POST /api/games/{kind}/sessions
func (h *GameHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req difficultyRequest
	if err := decodeJSONBody(w, r, &req, true); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	var d game.Difficulty
	if req.Difficulty != "" {
		parsed, err := game.ParseDifficulty(req.Difficulty)
		if err != nil {
			h.writeGameError(w, r, err, "")
			return
		}
		d = parsed
	}

	kind := chi.URLParam(r, "kind")
	view, err := h.service.Create(r.Context(), game.Kind(kind), d)
	if err != nil {
		if errors.Is(err, game.ErrUnknownKind) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewGameNotFoundError(kind))
			return
		}
		h.writeGameError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetSession はゲームセッションの現在の状態を返す。
// GET /api/games/sessions/{id}
func (h *GameHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.Get(r.Context(), id)
	h.respond(w, r, view, err, id)
}

// SelectDifficulty は難易度を選ぶ。
// POST /api/games/sessions/{id}/difficulty
func (h *GameHandler) SelectDifficulty(w http.ResponseWriter, r *http.Request) {
	var req difficultyRequest
	if err := decodeJSONBody(w, r, &req, false); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	d, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		h.writeGameError(w, r, err, "")
		return
	}

	id := chi.URLParam(r, "id")
	view, err := h.service.SelectDifficulty(r.Context(), id, d)
	h.respond(w, r, view, err, id)
}

// Start はゲームを開始する。
// POST /api/games/sessions/{id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.Start(r.Context(), id)
	h.respond(w, r, view, err, id)
}

// Answer は候補の番号で回答する。
// POST /api/games/sessions/{id}/answer
func (h *GameHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSONBody(w, r, &req, false); err != nil || req.Choice == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	id := chi.URLParam(r, "id")
	view, err := h.service.Answer(r.Context(), id, *req.Choice)
	h.respond(w, r, view, err, id)
}

// Hint は現在の問題の正解の候補をhintChoiceで返す。
// POST /api/games/sessions/{id}/hint
func (h *GameHandler) Hint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.Hint(r.Context(), id)
	h.respond(w, r, view, err, id)
}

// Continue はフィードバック表示を閉じる。
// POST /api/games/sessions/{id}/continue
func (h *GameHandler) Continue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.Continue(r.Context(), id)
	h.respond(w, r, view, err, id)
}

// NextLevel は次のレベルへ進む。
// POST /api/games/sessions/{id}/next-level
func (h *GameHandler) NextLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.NextLevel(r.Context(), id)
	h.respond(w, r, view, err, id)
}

// Restart はレベル1からやり直す。
// POST /api/games/sessions/{id}/restart
func (h *GameHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.Restart(r.Context(), id)
	h.respond(w, r, view, err, id)
}

// DeleteSession はゲームセッションを終了する。
// DELETE /api/games/sessions/{id}
func (h *GameHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeGameError(w, r, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) respond(w http.ResponseWriter, r *http.Request, view game.View, err error, id string) {
	if err != nil {
		h.writeGameError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// writeGameError はゲームのセンチネルエラーをAPIErrorに変換して書き込む。
func (h *GameHandler) writeGameError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		err = model.NewGameSessionNotFoundError(id)
	case errors.Is(err, game.ErrInvalidTransition):
		err = model.NewInvalidGameActionError(err.Error())
	case errors.Is(err, game.ErrInvalidChoice):
		err = model.NewValidationError("La opción elegida no existe.")
	case errors.Is(err, game.ErrInvalidDifficulty):
		err = model.NewValidationError("Dificultad no válida: usa easy, normal o hard.")
	}
	handleServiceError(w, r, err)
}
