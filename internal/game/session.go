package game

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Feedback は直前の回答に対する結果表示。
type Feedback struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`
}

// Session は1人のプレイヤーのゲーム進行状態。
// 時間に依存する遷移（制限時間切れ、表示フェーズの終了）は
// 操作のたびに渡される現在時刻で評価する。
type Session struct {
	ID         string
	Rules      *Rules
	Difficulty Difficulty
	State      State
	Level      int

	Correct       int
	Attempts      int
	Wrong         int
	LevelProgress int
	Hints         int

	Character   string
	Round       *Round
	Feedback    *Feedback
	Deadline    time.Time
	RevealUntil time.Time

	pendingNewRound bool
	hinted          bool
	rng             *rand.Rand
}

// NewSession はゲームセッションを生成する。
// 難易度が必要なゲームで難易度が空の場合は難易度選択から始まる。
// 難易度を使わないゲームではdは無視し、すぐに1問目を出題する。
func NewSession(id string, rules *Rules, rng *rand.Rand, d Difficulty, now time.Time) (*Session, error) {
	s := &Session{
		ID:    id,
		Rules: rules,
		Level: 1,
		rng:   rng,
	}

	if !rules.NeedsDifficulty {
		s.begin(now)
		return s, nil
	}

	if d == "" {
		s.State = StateSelectingDifficulty
		return s, nil
	}
	if err := s.SelectDifficulty(d, now); err != nil {
		return nil, err
	}
	return s, nil
}

// refresh は時間経過による遷移を反映する。
// 制限時間は残り時間がちょうど0になった時点で終了する。
func (s *Session) refresh(now time.Time) {
	if s.Rules.Countdown > 0 && (s.State == StateActive || s.State == StateFeedback) && !now.Before(s.Deadline) {
		s.State = StateGameOver
		s.Feedback = nil
		return
	}
	if s.State == StateRevealing && !now.Before(s.RevealUntil) {
		s.State = StateActive
	}
}

func invalid(action string, state State) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, action, state)
}

// SelectDifficulty は難易度を設定し、開始待ちの状態にする。
// プレイ中でも選び直せる。その場合は進行中の問題と制限時間を破棄する。
func (s *Session) SelectDifficulty(d Difficulty, now time.Time) error {
	s.refresh(now)
	if !s.Rules.NeedsDifficulty {
		return invalid("select difficulty", s.State)
	}
	parsed, err := ParseDifficulty(string(d))
	if err != nil {
		return err
	}

	s.Difficulty = parsed
	s.Level = 1
	s.resetScores()
	s.Round = nil
	s.Feedback = nil
	s.Deadline = time.Time{}
	s.State = StateAwaitingStart
	return nil
}

// Start は難易度を選んだゲームを開始する。制限時間はここから数える。
func (s *Session) Start(now time.Time) error {
	s.refresh(now)
	if s.State != StateAwaitingStart {
		return invalid("start", s.State)
	}
	s.resetScores()
	s.begin(now)
	return nil
}

// Answer は候補のインデックスで回答する。
func (s *Session) Answer(choice int, now time.Time) (bool, error) {
	s.refresh(now)
	if s.State != StateActive {
		return false, invalid("answer", s.State)
	}
	if choice < 0 || choice >= len(s.Round.Choices) {
		return false, fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
	}

	r := s.Rules
	s.Attempts++
	correct := choice == s.Round.Correct

	if !correct {
		s.Wrong++
		s.Feedback = &Feedback{Correct: false, Message: r.WrongMessage}
		if r.PauseAfterAnswer {
			s.State = StateFeedback
			s.pendingNewRound = r.NewRoundOnMiss
		}
		return false, nil
	}

	s.Correct++
	s.LevelProgress++
	s.Feedback = &Feedback{Correct: true, Message: r.CorrectMessage}

	switch {
	case r.AdvanceOnCorrect:
		if r.MaxLevel > 0 && s.Level >= r.MaxLevel {
			s.State = StateLevelComplete
		} else {
			s.Level++
			s.LevelProgress = 0
			s.afterCorrect(now)
		}
	case r.RoundsPerLevel > 0 && s.LevelProgress >= r.RoundsPerLevel:
		s.State = StateLevelComplete
	default:
		s.afterCorrect(now)
	}
	return true, nil
}

// Hint は現在の問題の正解の候補インデックスを返す。
// 回答中のみ使え、同じ問題で何度呼んでもヒント数は1回分だけ増える。
func (s *Session) Hint(now time.Time) (int, error) {
	s.refresh(now)
	if !s.Rules.Hints || s.State != StateActive {
		return 0, invalid("show hint", s.State)
	}
	if !s.hinted {
		s.hinted = true
		s.Hints++
	}
	return s.Round.Correct, nil
}

// afterCorrect は正解後、フィードバックで止まるか次の問題を出題する。
func (s *Session) afterCorrect(now time.Time) {
	if s.Rules.PauseAfterAnswer {
		s.State = StateFeedback
		s.pendingNewRound = true
		return
	}
	s.newRound(now)
}

// Continue はフィードバックを閉じてゲームに戻る。
func (s *Session) Continue(now time.Time) error {
	s.refresh(now)
	if s.State != StateFeedback {
		return invalid("continue", s.State)
	}
	s.Feedback = nil
	if s.pendingNewRound {
		s.newRound(now)
		return nil
	}
	s.State = StateActive
	return nil
}

// NextLevel は次のレベルを開始する。
// 時間制限のあるゲームでは制限時間終了後に、それ以外はレベルクリア後に呼べる。
func (s *Session) NextLevel(now time.Time) error {
	s.refresh(now)

	r := s.Rules
	switch {
	case s.State == StateLevelComplete:
	case s.State == StateGameOver && r.Countdown > 0:
	default:
		return invalid("advance level", s.State)
	}

	switch {
	case r.MaxLevel == 0 || s.Level < r.MaxLevel:
		s.Level++
	case r.WrapLevels:
		s.Level = 1
	default:
		return invalid("advance past the last level", s.State)
	}

	s.resetScores()
	s.begin(now)
	return nil
}

// Restart はレベル1から遊び直す。難易度は保持する。
func (s *Session) Restart(now time.Time) error {
	s.refresh(now)
	if s.State == StateSelectingDifficulty {
		return invalid("restart", s.State)
	}

	s.Level = 1
	s.resetScores()
	s.Feedback = nil
	if s.Rules.NeedsDifficulty {
		s.Round = nil
		s.State = StateAwaitingStart
		return nil
	}
	s.begin(now)
	return nil
}

// begin はキャラクターを選び直し、1問目を出題する。
func (s *Session) begin(now time.Time) {
	s.Character = characters[s.rng.IntN(len(characters))]
	s.Feedback = nil
	if s.Rules.Countdown > 0 {
		s.Deadline = now.Add(s.Rules.Countdown)
	}
	s.newRound(now)
}

// newRound は新しい問題を出題する。表示フェーズのあるゲームは表示状態から始まる。
func (s *Session) newRound(now time.Time) {
	round := s.Rules.Generate(s.rng, s.Level, s.Difficulty)
	s.Round = &round
	s.pendingNewRound = false
	s.hinted = false
	if s.Rules.Reveal != nil {
		s.RevealUntil = now.Add(s.Rules.Reveal(s.Level))
		s.State = StateRevealing
		return
	}
	s.State = StateActive
}

func (s *Session) resetScores() {
	s.Correct = 0
	s.Attempts = 0
	s.Wrong = 0
	s.LevelProgress = 0
	s.Hints = 0
}

// View はクライアントに返すセッションの表示内容。
// 正解のインデックスはヒントを求めた問題の回答中だけHintChoiceに入る。
type View struct {
	ID              string     `json:"id"`
	Kind            Kind       `json:"kind"`
	Title           string     `json:"title"`
	Difficulty      Difficulty `json:"difficulty,omitempty"`
	State           State      `json:"state"`
	Level           int        `json:"level"`
	MaxLevel        int        `json:"maxLevel,omitempty"`
	Correct         int        `json:"correct"`
	Attempts        int        `json:"attempts"`
	Wrong           int        `json:"wrong"`
	LevelProgress   int        `json:"levelProgress"`
	RoundsPerLevel  int        `json:"roundsPerLevel,omitempty"`
	Hints           int        `json:"hints,omitempty"`
	HintChoice      *int       `json:"hintChoice,omitempty"`
	Character       string     `json:"character,omitempty"`
	Prompt          string     `json:"prompt,omitempty"`
	Sequence        []string   `json:"sequence,omitempty"`
	Choices         []Choice   `json:"choices,omitempty"`
	TimeLeftSeconds *int       `json:"timeLeftSeconds,omitempty"`
	RevealRemainMs  int64      `json:"revealRemainingMs,omitempty"`
	Feedback        *Feedback  `json:"feedback,omitempty"`
}

// View は現在時刻時点の表示内容を返す。
// 表示フェーズ中はシーケンスだけを見せ、候補は隠す。表示フェーズ後はシーケンスを隠す。
func (s *Session) View(now time.Time) View {
	s.refresh(now)

	r := s.Rules
	v := View{
		ID:             s.ID,
		Kind:           r.Kind,
		Title:          r.Title,
		Difficulty:     s.Difficulty,
		State:          s.State,
		Level:          s.Level,
		MaxLevel:       r.MaxLevel,
		Correct:        s.Correct,
		Attempts:       s.Attempts,
		Wrong:          s.Wrong,
		LevelProgress:  s.LevelProgress,
		RoundsPerLevel: r.RoundsPerLevel,
		Hints:          s.Hints,
		Character:      s.Character,
		Feedback:       s.Feedback,
	}

	if s.Round != nil && s.State != StateGameOver && s.State != StateLevelComplete {
		v.Prompt = s.Round.Prompt
		if s.State == StateRevealing {
			v.Sequence = s.Round.Sequence
			v.RevealRemainMs = s.RevealUntil.Sub(now).Milliseconds()
		} else {
			v.Choices = s.Round.Choices
		}
		if s.hinted && s.State == StateActive {
			correct := s.Round.Correct
			v.HintChoice = &correct
		}
	}

	if r.Countdown > 0 && s.State != StateSelectingDifficulty {
		left := timeLeft(r.Countdown, s.Deadline, s.State, now)
		v.TimeLeftSeconds = &left
	}
	return v
}

// timeLeft は残り時間を秒単位で切り上げて返す。開始前は制限時間そのもの、終了後は0。
func timeLeft(countdown time.Duration, deadline time.Time, state State, now time.Time) int {
	switch state {
	case StateAwaitingStart:
		return int(countdown / time.Second)
	case StateGameOver:
		return 0
	}
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}
