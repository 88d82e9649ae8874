package game

import "math/rand/v2"

// maxAttempts はランダムな候補生成を諦めて決定的な補完に切り替えるまでの試行回数。
const maxAttempts = 1000

// Choice は回答候補の1つ。
type Choice struct {
	Label string   `json:"label"`
	Emoji string   `json:"emoji,omitempty"`
	Icons []string `json:"icons,omitempty"`
}

// Round は1問分の問題。Correctは正解候補のインデックスで、クライアントには返さない。
type Round struct {
	Prompt   string
	Sequence []string
	Choices  []Choice
	Correct  int
}

// Generator はレベルと難易度から1問を生成する。
type Generator func(rng *rand.Rand, level int, d Difficulty) Round

// candidates は正解を含むn個の重複しない候補を作り、シャッフルして正解の位置とともに返す。
// randomは不正解候補をランダムに1つ作る。maxAttempts回で揃わない場合は
// fallback(1), fallback(2), ... で残りを埋める。fallbackは十分な種類の値を返すこと。
func candidates[T any](rng *rand.Rand, correct T, n int, key func(T) string, random func() T, fallback func(i int) T) ([]T, int) {
	out := make([]T, 0, n)
	out = append(out, correct)
	seen := map[string]bool{key(correct): true}

	add := func(c T) {
		k := key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}

	for attempt := 0; len(out) < n && attempt < maxAttempts; attempt++ {
		add(random())
	}
	for i := 1; len(out) < n; i++ {
		add(fallback(i))
	}

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	correctKey := key(correct)
	for i, c := range out {
		if key(c) == correctKey {
			return out, i
		}
	}
	return out, 0
}

// intn は[lo, hi]の一様乱数を返す。hi < lo の場合はloを返す。
func intn(rng *rand.Rand, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
