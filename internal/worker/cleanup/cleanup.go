// Package cleanup は放置されたゲームセッションの定期削除ジョブを提供する。
// 最後の操作からTTLを超えたセッションをメモリから取り除き、
// 残ったセッション数をメトリクスに反映する。
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval はジョブの実行間隔のデフォルト値。
const DefaultInterval = time.Minute

// SessionSweeper は期限切れセッションの削除を抽象化するインターフェース。
// *game.Store を受け付ける。
type SessionSweeper interface {
	Sweep() int
	Len() int
}

// ActiveSessionsRecorder は保持中のセッション数を記録するインターフェース。
type ActiveSessionsRecorder interface {
	SetActiveGameSessions(n int)
}

// CleanupJob は期限切れゲームセッションの削除ジョブ。
type CleanupJob struct {
	store    SessionSweeper
	recorder ActiveSessionsRecorder
	logger   *slog.Logger
	Interval time.Duration // 実行間隔（デフォルト: 1分）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(store SessionSweeper, recorder ActiveSessionsRecorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		store:    store,
		recorder: recorder,
		logger:   logger,
		Interval: DefaultInterval,
	}
}

// Run は期限切れセッションを1回削除する。
// 冪等: 削除対象がない場合でも何もしない。
func (j *CleanupJob) Run(ctx context.Context) {
	start := time.Now()

	removed := j.store.Sweep()
	active := j.store.Len()
	if j.recorder != nil {
		j.recorder.SetActiveGameSessions(active)
	}

	if removed == 0 {
		return
	}
	j.logger.InfoContext(ctx, "expired game sessions removed",
		slog.Int("removed_count", removed),
		slog.Int("active_count", active),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

// Start はIntervalごとにRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("game session cleanup started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("game session cleanup stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
