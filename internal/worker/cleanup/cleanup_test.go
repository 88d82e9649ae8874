package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockSweeper struct {
	mu         sync.Mutex
	sweepCalls int
	removed    int
	remaining  int
}

func (m *mockSweeper) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepCalls++
	return m.removed
}

func (m *mockSweeper) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

func (m *mockSweeper) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepCalls
}

type mockRecorder struct {
	mu   sync.Mutex
	last int
	set  bool
}

func (m *mockRecorder) SetActiveGameSessions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = n
	m.set = true
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_DefaultInterval(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockSweeper{}, nil, newTestLogger(&buf))

	if job.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", job.Interval, DefaultInterval)
	}
}

func TestCleanupJob_Run_RecordsActiveSessions(t *testing.T) {
	var buf bytes.Buffer
	store := &mockSweeper{removed: 3, remaining: 7}
	rec := &mockRecorder{}
	job := NewCleanupJob(store, rec, newTestLogger(&buf))

	job.Run(context.Background())

	if store.calls() != 1 {
		t.Errorf("Sweep called %d times, want 1", store.calls())
	}
	if !rec.set || rec.last != 7 {
		t.Errorf("SetActiveGameSessions = %d (set=%v), want 7", rec.last, rec.set)
	}
}

func TestCleanupJob_Run_LogsRemovedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockSweeper{removed: 42, remaining: 1}, nil, newTestLogger(&buf))

	job.Run(context.Background())

	var entry map[string]any
	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["removed_count"] == float64(42) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに removed_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_NoLogWhenNothingRemoved(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockSweeper{}, nil, newTestLogger(&buf))

	job.Run(context.Background())

	if buf.Len() != 0 {
		t.Errorf("削除対象がない場合はログを出さない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	store := &mockSweeper{}
	job := NewCleanupJob(store, nil, slog.New(slog.NewJSONHandler(&lockedWriter{w: &buf}, nil)))
	job.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start がキャンセル後に終了しなかった")
	}
	if store.calls() < 2 {
		t.Errorf("Sweep called %d times, want >= 2", store.calls())
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
