package game

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

const arithmeticOptions = 3

// maxOperand はレベルごとの被演算子の上限。
func maxOperand(level int) int {
	switch {
	case level <= 1:
		return 10
	case level == 2:
		return 15
	default:
		return 20
	}
}

func intKey(n int) string { return strconv.Itoa(n) }

func numberChoices(values []int) []Choice {
	choices := make([]Choice, len(values))
	for i, v := range values {
		choices[i] = Choice{Label: strconv.Itoa(v)}
	}
	return choices
}

// generateAddition は a + b の問題を生成する。
// 不正解候補は[1, 2*max]の範囲で、正解との差が2以上のもの。
func generateAddition(rng *rand.Rand, level int, _ Difficulty) Round {
	maxN := maxOperand(level)
	a := intn(rng, 1, maxN)
	b := intn(rng, 1, maxN)
	answer := a + b

	values, correct := candidates(rng, answer, arithmeticOptions, intKey,
		func() int {
			d := intn(rng, 1, 2*maxN)
			if abs(d-answer) <= 1 {
				// 正解と同じキーを返すと候補から除外される
				return answer
			}
			return d
		},
		func(i int) int {
			// 範囲内で正解との差が2以上の値を小さい順にi番目まで数える
			for v := 1; v <= 2*maxN; v++ {
				if abs(v-answer) > 1 {
					if i--; i == 0 {
						return v
					}
				}
			}
			return answer + 1 + i
		},
	)

	return Round{
		Prompt:  fmt.Sprintf("%d + %d = ?", a, b),
		Choices: numberChoices(values),
		Correct: correct,
	}
}

// generateMultiplyDivide はかけ算、または割り切れるわり算の問題を生成する。
// 不正解候補は正解±rの範囲（r = max(3, bound/2)）で、0以下の値は|v|+1に置き換える。
func generateMultiplyDivide(rng *rand.Rand, level int, _ Difficulty) Round {
	maxN := maxOperand(level)

	var prompt string
	var answer, bound int
	if rng.IntN(2) == 1 {
		a := intn(rng, 1, maxN)
		b := intn(rng, 1, maxN)
		answer = a * b
		bound = max(maxN, (answer+1)/2)
		prompt = fmt.Sprintf("%d × %d = ?", a, b)
	} else {
		divisor := intn(rng, 1, max(1, maxN-1))
		quotient := intn(rng, 1, maxN)
		answer = quotient
		bound = max(maxN, quotient+5)
		prompt = fmt.Sprintf("%d ÷ %d = ?", divisor*quotient, divisor)
	}

	r := max(3, bound/2)
	values, correct := candidates(rng, answer, arithmeticOptions, intKey,
		func() int {
			v := answer + intn(rng, -r, r)
			if v <= 0 {
				v = abs(v) + 1
			}
			return v
		},
		func(i int) int { return answer + i },
	)

	return Round{
		Prompt:  prompt,
		Choices: numberChoices(values),
		Correct: correct,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
