// Package game は子ども向けミニゲーム（図形探し、記憶、たし算、かけ算・わり算）を提供する。
// 4つのゲームは共通の「クイズラウンド」（問題、重複のない候補、正解1つ）と
// 共通の状態遷移を持ち、ゲームごとの違いはRulesのパラメータで表す。
package game

import (
	"errors"
	"strings"
)

// Kind はゲームの種別。
type Kind string

const (
	KindShapes         Kind = "shapes"
	KindMemory         Kind = "memory"
	KindAddition       Kind = "addition"
	KindMultiplyDivide Kind = "multiply-divide"
)

// Difficulty は図形探しゲームの難易度。
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty は難易度文字列を解釈する。スペイン語の表記も受け付ける。
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "facil", "fácil":
		return DifficultyEasy, nil
	case "normal":
		return DifficultyNormal, nil
	case "hard", "dificil", "difícil":
		return DifficultyHard, nil
	}
	return "", ErrInvalidDifficulty
}

// State はゲームセッションの状態。
type State string

const (
	StateSelectingDifficulty State = "selecting_difficulty"
	StateAwaitingStart       State = "awaiting_start"
	StateRevealing           State = "revealing"
	StateActive              State = "active"
	StateFeedback            State = "feedback"
	StateLevelComplete       State = "level_complete"
	StateGameOver            State = "game_over"
)

var (
	// ErrUnknownKind は未知のゲーム種別の場合のエラー。
	ErrUnknownKind = errors.New("game: unknown kind")
	// ErrSessionNotFound はセッションが存在しない、または期限切れの場合のエラー。
	ErrSessionNotFound = errors.New("game: session not found")
	// ErrInvalidTransition は現在の状態で許可されない操作の場合のエラー。
	ErrInvalidTransition = errors.New("game: invalid transition")
	// ErrInvalidChoice は候補の範囲外を選択した場合のエラー。
	ErrInvalidChoice = errors.New("game: invalid choice")
	// ErrInvalidDifficulty は未知の難易度の場合のエラー。
	ErrInvalidDifficulty = errors.New("game: invalid difficulty")
)

// characters はゲーム開始時にランダムに選ぶキャラクター。
var characters = []string{"🦸‍♂️", "🧚‍♀️", "🧙‍♂️", "🦊", "🐱", "🐶", "🐰", "🐼"}
