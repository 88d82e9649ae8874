package game

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
)

type answerRecord struct {
	kind    string
	correct bool
}

type mockAnswerRecorder struct {
	mu      sync.Mutex
	records []answerRecord
}

func (m *mockAnswerRecorder) RecordGameAnswer(kind string, correct bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, answerRecord{kind, correct})
}

func newTestService() (*Service, *mockAnswerRecorder) {
	store, _ := newTestStore(DefaultSessionTTL)
	rec := &mockAnswerRecorder{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(store, rec, logger), rec
}

func TestService_ShapesFlow(t *testing.T) {
	svc, rec := newTestService()
	ctx := context.Background()

	v, err := svc.Create(ctx, KindShapes, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.State != StateSelectingDifficulty {
		t.Fatalf("State = %q", v.State)
	}

	if v, err = svc.SelectDifficulty(ctx, v.ID, DifficultyEasy); err != nil {
		t.Fatalf("SelectDifficulty: %v", err)
	}
	if v, err = svc.Start(ctx, v.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(v.Choices) != 3 {
		t.Fatalf("len(Choices) = %d, want 3", len(v.Choices))
	}

	if _, err = svc.Answer(ctx, v.ID, 0); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(rec.records) != 1 || rec.records[0].kind != "shapes" {
		t.Errorf("records = %+v", rec.records)
	}

	if _, err = svc.Answer(ctx, v.ID, 9); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("err = %v, want ErrInvalidChoice", err)
	}
	if len(rec.records) != 1 {
		t.Errorf("invalid choice should not be recorded, got %d records", len(rec.records))
	}
}

func TestService_Hint(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	v, err := svc.Create(ctx, KindAddition, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v, err = svc.Hint(ctx, v.ID)
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if v.HintChoice == nil || *v.HintChoice < 0 || *v.HintChoice >= len(v.Choices) {
		t.Fatalf("HintChoice = %v, want an index into %d choices", v.HintChoice, len(v.Choices))
	}

	v, err = svc.Answer(ctx, v.ID, *v.HintChoice)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if v.Correct != 1 {
		t.Errorf("Correct = %d, want 1", v.Correct)
	}
}

func TestService_UnknownSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ops := map[string]func() error{
		"get":      func() error { _, err := svc.Get(ctx, "missing"); return err },
		"start":    func() error { _, err := svc.Start(ctx, "missing"); return err },
		"answer":   func() error { _, err := svc.Answer(ctx, "missing", 0); return err },
		"continue": func() error { _, err := svc.Continue(ctx, "missing"); return err },
		"next":     func() error { _, err := svc.NextLevel(ctx, "missing"); return err },
		"restart":  func() error { _, err := svc.Restart(ctx, "missing"); return err },
		"delete":   func() error { return svc.Delete(ctx, "missing") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("err = %v, want ErrSessionNotFound", err)
			}
		})
	}
}

func TestService_Catalog(t *testing.T) {
	svc, _ := newTestService()
	infos := svc.Catalog()
	if len(infos) != 4 {
		t.Fatalf("len = %d, want 4", len(infos))
	}
	want := []Kind{KindAddition, KindMemory, KindMultiplyDivide, KindShapes}
	for i, k := range want {
		if infos[i].Kind != k {
			t.Errorf("infos[%d].Kind = %q, want %q", i, infos[i].Kind, k)
		}
	}
	if infos[3].CountdownSecs != 30 || !infos[3].NeedsDifficulty || len(infos[3].Difficulties) != 3 {
		t.Errorf("shapes info = %+v", infos[3])
	}
}

func TestService_NilRecorder(t *testing.T) {
	store, _ := newTestStore(DefaultSessionTTL)
	svc := NewService(store, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctx := context.Background()

	v, _ := svc.Create(ctx, KindAddition, "")
	if _, err := svc.Answer(ctx, v.ID, 0); err != nil {
		t.Fatalf("Answer: %v", err)
	}
}
