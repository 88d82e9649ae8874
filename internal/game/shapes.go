package game

import "math/rand/v2"

type shape struct {
	Name  string
	Emoji string
}

var shapes = []shape{
	{"círculo", "🔵"},
	{"cuadrado", "🟦"},
	{"triángulo", "🔺"},
	{"estrella", "⭐"},
	{"corazón", "❤"},
	{"hexágono", "⬡"},
	{"rombo", "🔶"},
	{"óvalo", "🟠"},
	{"rectángulo", "▭"},
	{"pentágono", "⬟"},
	{"semicírculo", "◐"},
	{"octágono", "🛑"},
	{"cuadrado claro", "⬜"},
	{"cuadrado oscuro", "⬛"},
}

// shapeCount は難易度ごとに表示する図形の数。
func shapeCount(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return 3
	case DifficultyNormal:
		return 5
	default:
		return 7
	}
}

// generateShapes は重複のない図形をshapeCount個選び、その中の1つを探す図形にする。
func generateShapes(rng *rand.Rand, _ int, d Difficulty) Round {
	perm := rng.Perm(len(shapes))[:shapeCount(d)]
	target := rng.IntN(len(perm))

	choices := make([]Choice, len(perm))
	for i, idx := range perm {
		choices[i] = Choice{Label: shapes[idx].Name, Emoji: shapes[idx].Emoji}
	}

	return Round{
		Prompt:  "Encuentra: " + shapes[perm[target]].Name,
		Choices: choices,
		Correct: target,
	}
}
