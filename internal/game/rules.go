package game

import (
	"slices"
	"time"
)

// Rules はゲームごとの進行ルール。
type Rules struct {
	Kind  Kind
	Title string

	// MaxLevel は最終レベル。0は上限なし。
	MaxLevel int
	// RoundsPerLevel はレベルクリアに必要な正解数。0はこの条件を使わない。
	RoundsPerLevel int
	// Countdown は制限時間。0は時間制限なし。
	Countdown time.Duration
	// NeedsDifficulty は開始前に難易度の選択が必要かどうか。
	NeedsDifficulty bool
	// AdvanceOnCorrect は正解ごとに次のレベルへ進むかどうか。
	AdvanceOnCorrect bool
	// WrapLevels は最終レベルの次をレベル1に戻すかどうか。
	WrapLevels bool
	// PauseAfterAnswer は回答後にフィードバック状態で止まるかどうか。
	PauseAfterAnswer bool
	// NewRoundOnMiss は不正解のフィードバック後に新しい問題にするかどうか。
	NewRoundOnMiss bool
	// Hints は回答中に正解の候補を教えてもらえるかどうか。
	Hints bool
	// Reveal は問題を見せる時間を返す。nilの場合は表示フェーズなし。
	Reveal func(level int) time.Duration

	CorrectMessage string
	WrongMessage   string

	Generate Generator
}

var catalog = map[Kind]*Rules{
	KindShapes: {
		Kind:            KindShapes,
		Title:           "Cazador de Formas",
		Countdown:       30 * time.Second,
		NeedsDifficulty: true,
		CorrectMessage:  "¡Excelente! ¡Encontraste la forma correcta!",
		WrongMessage:    "¡Ups! Esa no es la forma que buscamos.",
		Generate:        generateShapes,
	},
	KindMemory: {
		Kind:             KindMemory,
		Title:            "Memoria Mágica",
		MaxLevel:         5,
		AdvanceOnCorrect: true,
		PauseAfterAnswer: true,
		Reveal:           memoryRevealDuration,
		CorrectMessage:   "¡Excelente memoria! 😄",
		WrongMessage:     "No es la secuencia correcta 😢",
		Generate:         generateMemory,
	},
	KindAddition: {
		Kind:             KindAddition,
		Title:            "Suma Saltarina",
		MaxLevel:         5,
		RoundsPerLevel:   5,
		WrapLevels:       true,
		PauseAfterAnswer: true,
		NewRoundOnMiss:   true,
		Hints:            true,
		CorrectMessage:   "¡Muy bien! ¡Respuesta correcta!",
		WrongMessage:     "Ups, esa no es la respuesta. ¡Inténtalo de nuevo!",
		Generate:         generateAddition,
	},
	KindMultiplyDivide: {
		Kind:             KindMultiplyDivide,
		Title:            "Multiplicaciones y Divisiones",
		MaxLevel:         5,
		RoundsPerLevel:   5,
		WrapLevels:       true,
		PauseAfterAnswer: true,
		NewRoundOnMiss:   true,
		Hints:            true,
		CorrectMessage:   "¡Excelente! ¡Muy bien!",
		WrongMessage:     "Ups, respuesta incorrecta.",
		Generate:         generateMultiplyDivide,
	},
}

// Lookup はゲーム種別のルールを返す。
func Lookup(kind Kind) (*Rules, error) {
	r, ok := catalog[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	return r, nil
}

// Info はゲーム一覧に表示する情報。
type Info struct {
	Kind            Kind         `json:"kind"`
	Title           string       `json:"title"`
	MaxLevel        int          `json:"maxLevel,omitempty"`
	RoundsPerLevel  int          `json:"roundsPerLevel,omitempty"`
	CountdownSecs   int          `json:"countdownSeconds,omitempty"`
	NeedsDifficulty bool         `json:"needsDifficulty"`
	Hints           bool         `json:"hints"`
	Difficulties    []Difficulty `json:"difficulties,omitempty"`
}

// Catalog はすべてのゲームの情報を種別名順に返す。
func Catalog() []Info {
	kinds := make([]Kind, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	infos := make([]Info, 0, len(kinds))
	for _, k := range kinds {
		r := catalog[k]
		info := Info{
			Kind:            r.Kind,
			Title:           r.Title,
			MaxLevel:        r.MaxLevel,
			RoundsPerLevel:  r.RoundsPerLevel,
			CountdownSecs:   int(r.Countdown / time.Second),
			NeedsDifficulty: r.NeedsDifficulty,
			Hints:           r.Hints,
		}
		if r.NeedsDifficulty {
			info.Difficulties = []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard}
		}
		infos = append(infos, info)
	}
	return infos
}
