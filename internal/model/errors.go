// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, category, game, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeGameNotFound        = "GAME_NOT_FOUND"
	ErrCodeGameSessionNotFound = "GAME_SESSION_NOT_FOUND"
	ErrCodeInvalidGameAction   = "INVALID_GAME_ACTION"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証・権限エラーを生成する。
// セッションなし、無効なセッション、権限不足を区別しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "No autorizado.",
		Category: "auth",
		Action:   "Inicia sesión con una cuenta de administrador.",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "No se pudo leer el cuerpo de la solicitud.",
		Category: "validation",
		Action:   "Envía un JSON válido.",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Corrige los campos indicados e inténtalo de nuevo.",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("No existe la categoría: %s", id),
		Category: "category",
		Action:   "Recarga la lista de categorías.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(uid string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("No existe el usuario: %s", uid),
		Category: "auth",
		Action:   "Verifica el UID del usuario.",
	}
}

// NewGameNotFoundError は未知のゲーム種別エラーを生成する。
func NewGameNotFoundError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeGameNotFound,
		Message:  fmt.Sprintf("No existe el juego: %s", kind),
		Category: "game",
		Action:   "Elige un juego del catálogo.",
	}
}

// NewGameSessionNotFoundError はゲームセッションが存在しない、または期限切れの場合のエラーを生成する。
func NewGameSessionNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeGameSessionNotFound,
		Message:  fmt.Sprintf("La partida no existe o ha expirado: %s", id),
		Category: "game",
		Action:   "Empieza una partida nueva.",
	}
}

// NewInvalidGameActionError は現在の状態で許可されない操作のエラーを生成する。
func NewInvalidGameActionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGameAction,
		Message:  fmt.Sprintf("Acción no permitida: %s", reason),
		Category: "game",
		Action:   "Consulta el estado de la partida antes de continuar.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Ocurrió un error interno.",
		Category: "system",
		Action:   "Espera un momento e inténtalo de nuevo.",
	}
}
