package game

import (
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

var memoryIcons = []string{
	"🐱", "🐶", "🦊", "🐸", "🐼",
	"🐵", "🐰", "🦁", "🐮", "🐷",
	"⭐", "❤️", "🍀", "🔥", "🎈",
}

const memoryOptions = 3

// memoryRevealDuration はレベルごとのシーケンス表示時間。
func memoryRevealDuration(level int) time.Duration {
	return time.Duration(2500+500*level) * time.Millisecond
}

// generateMemory は長さ3+levelのシーケンスと、それを含む3つの候補を生成する。
// 偽の候補は各アイコンを1/2の確率で別のアイコンに置き換えたもの。
func generateMemory(rng *rand.Rand, level int, _ Difficulty) Round {
	length := 3 + level
	seq := make([]string, length)
	for i := range seq {
		seq[i] = memoryIcons[rng.IntN(len(memoryIcons))]
	}

	random := func() []string {
		fake := slices.Clone(seq)
		for i := range fake {
			if rng.Float64() < 0.5 {
				fake[i] = memoryIcons[rng.IntN(len(memoryIcons))]
			}
		}
		return fake
	}
	fallback := func(n int) []string {
		fake := slices.Clone(seq)
		pos := (n - 1) % length
		shift := 1 + (n-1)/length
		fake[pos] = memoryIcons[(slices.Index(memoryIcons, seq[pos])+shift)%len(memoryIcons)]
		return fake
	}
	key := func(s []string) string { return strings.Join(s, "|") }

	options, correct := candidates(rng, seq, memoryOptions, key, random, fallback)

	choices := make([]Choice, len(options))
	for i, opt := range options {
		choices[i] = Choice{Label: strings.Join(opt, " "), Icons: opt}
	}

	return Round{
		Prompt:   "¿Qué secuencia viste?",
		Sequence: seq,
		Choices:  choices,
		Correct:  correct,
	}
}
