// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ゲームセッションの掃除ジョブから利用する。
type MetricsCollector interface {
	RecordSessionVerification(result string)
	RecordAdminClaimChange(granted bool)
	RecordCategoryMutation(op string)
	RecordGameAnswer(kind string, correct bool)
	SetActiveGameSessions(n int)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionVerifications *prometheus.CounterVec
	adminClaimChanges    *prometheus.CounterVec
	categoryMutations    *prometheus.CounterVec
	gameAnswers          *prometheus.CounterVec
	activeGameSessions   prometheus.Gauge
	httpStatus           *prometheus.CounterVec
	requestLatency       prometheus.Histogram
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pequemaths_session_verifications_total",
			Help: "セッションCookie検証の結果別件数",
		}, []string{"result"}),
		adminClaimChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pequemaths_admin_claim_changes_total",
			Help: "管理者クレームの付与・剥奪の件数",
		}, []string{"granted"}),
		categoryMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pequemaths_category_mutations_total",
			Help: "カテゴリの作成・更新・削除の件数",
		}, []string{"op"}),
		gameAnswers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pequemaths_game_answers_total",
			Help: "ゲーム種別・正誤別の回答数",
		}, []string{"kind", "result"}),
		activeGameSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pequemaths_game_sessions_active",
			Help: "メモリ上に保持しているゲームセッション数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pequemaths_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pequemaths_request_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionVerifications,
		c.adminClaimChanges,
		c.categoryMutations,
		c.gameAnswers,
		c.activeGameSessions,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSessionVerification はセッション検証結果（ok, missing, invalid）を記録する。
func (c *Collector) RecordSessionVerification(result string) {
	c.sessionVerifications.WithLabelValues(result).Inc()
}

// RecordAdminClaimChange は管理者クレームの変更を記録する。
func (c *Collector) RecordAdminClaimChange(granted bool) {
	c.adminClaimChanges.WithLabelValues(strconv.FormatBool(granted)).Inc()
}

// RecordCategoryMutation はカテゴリの変更操作を記録する。
func (c *Collector) RecordCategoryMutation(op string) {
	c.categoryMutations.WithLabelValues(op).Inc()
}

// RecordGameAnswer はゲームの回答を記録する。
func (c *Collector) RecordGameAnswer(kind string, correct bool) {
	result := "wrong"
	if correct {
		result = "correct"
	}
	c.gameAnswers.WithLabelValues(kind, result).Inc()
}

// SetActiveGameSessions は保持中のゲームセッション数を設定する。
func (c *Collector) SetActiveGameSessions(n int) {
	c.activeGameSessions.Set(float64(n))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
