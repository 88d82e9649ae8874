package game

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"testing"
)

func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

// assertValidRound は候補に重複がなく、正解のインデックスが範囲内であることを検証する。
func assertValidRound(t *testing.T, r Round, wantChoices int) {
	t.Helper()

	if len(r.Choices) != wantChoices {
		t.Fatalf("len(Choices) = %d, want %d", len(r.Choices), wantChoices)
	}
	if r.Correct < 0 || r.Correct >= len(r.Choices) {
		t.Fatalf("Correct = %d, out of range", r.Correct)
	}
	seen := make(map[string]bool)
	for _, c := range r.Choices {
		if seen[c.Label] {
			t.Fatalf("duplicate choice %q in %+v", c.Label, r.Choices)
		}
		seen[c.Label] = true
	}
}

func TestGenerateShapes(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		want       int
	}{
		{DifficultyEasy, 3},
		{DifficultyNormal, 5},
		{DifficultyHard, 7},
	}

	for _, tt := range tests {
		t.Run(string(tt.difficulty), func(t *testing.T) {
			for seed := range uint64(300) {
				r := generateShapes(newTestRand(seed), 1, tt.difficulty)
				assertValidRound(t, r, tt.want)

				target := strings.TrimPrefix(r.Prompt, "Encuentra: ")
				if r.Choices[r.Correct].Label != target {
					t.Fatalf("correct choice = %q, prompt target = %q", r.Choices[r.Correct].Label, target)
				}
			}
		})
	}
}

func TestGenerateMemory(t *testing.T) {
	for level := 1; level <= 5; level++ {
		for seed := range uint64(300) {
			r := generateMemory(newTestRand(seed), level, "")
			assertValidRound(t, r, memoryOptions)

			if len(r.Sequence) != 3+level {
				t.Fatalf("level %d: len(Sequence) = %d, want %d", level, len(r.Sequence), 3+level)
			}
			for i, c := range r.Choices {
				isSeq := slices.Equal(c.Icons, r.Sequence)
				if isSeq != (i == r.Correct) {
					t.Fatalf("level %d seed %d: choice %d matches sequence = %v, correct = %d", level, seed, i, isSeq, r.Correct)
				}
				if len(c.Icons) != len(r.Sequence) {
					t.Fatalf("choice %d has %d icons, want %d", i, len(c.Icons), len(r.Sequence))
				}
			}
		}
	}
}

func TestMemoryRevealDuration(t *testing.T) {
	if got := memoryRevealDuration(1).Milliseconds(); got != 3000 {
		t.Errorf("level 1 = %dms, want 3000", got)
	}
	if got := memoryRevealDuration(5).Milliseconds(); got != 5000 {
		t.Errorf("level 5 = %dms, want 5000", got)
	}
}

// parseOperation は "a op b = ?" 形式の問題を分解する。
func parseOperation(t *testing.T, prompt string) (int, string, int) {
	t.Helper()
	f := strings.Fields(prompt)
	if len(f) != 5 {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	a, err := strconv.Atoi(f[0])
	if err != nil {
		t.Fatalf("prompt %q: %v", prompt, err)
	}
	b, err := strconv.Atoi(f[2])
	if err != nil {
		t.Fatalf("prompt %q: %v", prompt, err)
	}
	return a, f[1], b
}

func choiceValues(t *testing.T, r Round) []int {
	t.Helper()
	values := make([]int, len(r.Choices))
	for i, c := range r.Choices {
		v, err := strconv.Atoi(c.Label)
		if err != nil {
			t.Fatalf("choice %q is not a number", c.Label)
		}
		values[i] = v
	}
	return values
}

func TestGenerateAddition(t *testing.T) {
	for level := 1; level <= 5; level++ {
		maxN := maxOperand(level)
		for seed := range uint64(300) {
			r := generateAddition(newTestRand(seed), level, "")
			assertValidRound(t, r, arithmeticOptions)

			a, op, b := parseOperation(t, r.Prompt)
			if op != "+" {
				t.Fatalf("op = %q, want +", op)
			}
			if a < 1 || a > maxN || b < 1 || b > maxN {
				t.Fatalf("level %d: operands %d, %d out of [1, %d]", level, a, b, maxN)
			}

			values := choiceValues(t, r)
			answer := a + b
			if values[r.Correct] != answer {
				t.Fatalf("correct choice = %d, want %d", values[r.Correct], answer)
			}
			for i, v := range values {
				if i == r.Correct {
					continue
				}
				if abs(v-answer) <= 1 {
					t.Fatalf("distractor %d too close to answer %d", v, answer)
				}
				if v < 1 || v > 2*maxN {
					t.Fatalf("level %d: distractor %d out of [1, %d]", level, v, 2*maxN)
				}
			}
		}
	}
}

func TestGenerateMultiplyDivide(t *testing.T) {
	sawMul, sawDiv := false, false
	for level := 1; level <= 5; level++ {
		maxN := maxOperand(level)
		for seed := range uint64(300) {
			r := generateMultiplyDivide(newTestRand(seed), level, "")
			assertValidRound(t, r, arithmeticOptions)

			a, op, b := parseOperation(t, r.Prompt)
			var answer int
			switch op {
			case "×":
				sawMul = true
				answer = a * b
			case "÷":
				sawDiv = true
				if b < 1 || b > maxN-1 {
					t.Fatalf("divisor %d out of [1, %d]", b, maxN-1)
				}
				if a%b != 0 {
					t.Fatalf("%d ÷ %d is not exact", a, b)
				}
				answer = a / b
				if answer < 1 || answer > maxN {
					t.Fatalf("quotient %d out of [1, %d]", answer, maxN)
				}
			default:
				t.Fatalf("unexpected op %q", op)
			}

			values := choiceValues(t, r)
			if values[r.Correct] != answer {
				t.Fatalf("%s: correct choice = %d, want %d", r.Prompt, values[r.Correct], answer)
			}
			for _, v := range values {
				if v <= 0 {
					t.Fatalf("%s: non-positive choice %d", r.Prompt, v)
				}
			}
		}
	}
	if !sawMul || !sawDiv {
		t.Errorf("expected both operations, mul=%v div=%v", sawMul, sawDiv)
	}
}

func TestCandidates_FallbackWhenRandomDoesNotConverge(t *testing.T) {
	rng := newTestRand(1)
	calls := 0
	values, correct := candidates(rng, 7, 3, intKey,
		func() int {
			calls++
			return 7
		},
		func(i int) int { return 7 + i },
	)

	if calls != maxAttempts {
		t.Errorf("random called %d times, want %d", calls, maxAttempts)
	}
	if values[correct] != 7 {
		t.Errorf("values[correct] = %d, want 7", values[correct])
	}
	slices.Sort(values)
	if !slices.Equal(values, []int{7, 8, 9}) {
		t.Errorf("values = %v, want [7 8 9]", values)
	}
}

func TestIntn(t *testing.T) {
	rng := newTestRand(3)
	for range 200 {
		v := intn(rng, -2, 2)
		if v < -2 || v > 2 {
			t.Fatalf("intn(-2, 2) = %d", v)
		}
	}
	if got := intn(rng, 5, 4); got != 5 {
		t.Errorf("intn(5, 4) = %d, want 5", got)
	}
}
