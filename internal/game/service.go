package game

import (
	"context"
	"log/slog"
	"time"
)

// AnswerRecorder は回答結果を記録するインターフェース。
type AnswerRecorder interface {
	RecordGameAnswer(kind string, correct bool)
}

// Service はゲームセッションの操作を提供する。
type Service struct {
	store    *Store
	recorder AnswerRecorder
	logger   *slog.Logger
}

// NewService は新しいServiceを生成する。recorderはnilでもよい。
func NewService(store *Store, recorder AnswerRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// Catalog は遊べるゲームの一覧を返す。
func (s *Service) Catalog() []Info {
	return Catalog()
}

// Create は新しいゲームセッションを作成する。
func (s *Service) Create(ctx context.Context, kind Kind, d Difficulty) (View, error) {
	v, err := s.store.Create(kind, d)
	if err != nil {
		return View{}, err
	}
	s.logger.DebugContext(ctx, "game session created",
		slog.String("session_id", v.ID),
		slog.String("kind", string(kind)),
	)
	return v, nil
}

// Get はセッションの現在の表示内容を返す。
func (s *Service) Get(_ context.Context, id string) (View, error) {
	return s.store.Get(id)
}

// SelectDifficulty は難易度を選択する。
func (s *Service) SelectDifficulty(_ context.Context, id string, d Difficulty) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		return sess.SelectDifficulty(d, now)
	})
}

// Start はゲームを開始する。
func (s *Service) Start(_ context.Context, id string) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		return sess.Start(now)
	})
}

// Answer は候補choiceで回答する。
func (s *Service) Answer(ctx context.Context, id string, choice int) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		correct, err := sess.Answer(choice, now)
		if err != nil {
			return err
		}
		if s.recorder != nil {
			s.recorder.RecordGameAnswer(string(sess.Rules.Kind), correct)
		}
		s.logger.DebugContext(ctx, "game answer",
			slog.String("session_id", id),
			slog.Bool("correct", correct),
			slog.Int("level", sess.Level),
		)
		return nil
	})
}

// Hint は現在の問題の正解を示すヒントを表示する。
func (s *Service) Hint(_ context.Context, id string) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		_, err := sess.Hint(now)
		return err
	})
}

// Continue はフィードバックを閉じる。
func (s *Service) Continue(_ context.Context, id string) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		return sess.Continue(now)
	})
}

// NextLevel は次のレベルへ進む。
func (s *Service) NextLevel(_ context.Context, id string) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		return sess.NextLevel(now)
	})
}

// Restart はレベル1からやり直す。
func (s *Service) Restart(_ context.Context, id string) (View, error) {
	return s.store.Do(id, func(sess *Session, now time.Time) error {
		return sess.Restart(now)
	})
}

// Delete はセッションを終了する。
func (s *Service) Delete(_ context.Context, id string) error {
	return s.store.Delete(id)
}
