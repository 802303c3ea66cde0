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
// サービス層・ワーカー・HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordVote(side, result string)
	RecordReaction(reactionType, result string)
	RecordChallenge(event string)
	RecordBOTDSelection(result string)
	RecordBOTDFinalization(result string)
	RecordRotationLatency(duration time.Duration)
	RecordCounterDrift(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	votes           *prometheus.CounterVec
	reactions       *prometheus.CounterVec
	challenges      *prometheus.CounterVec
	botdSelections  *prometheus.CounterVec
	botdFinalized   *prometheus.CounterVec
	rotationLatency prometheus.Histogram
	counterDrift    prometheus.Gauge
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beefboard_votes_total",
			Help: "投票の試行数（結果別）",
		}, []string{"side", "result"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beefboard_reactions_total",
			Help: "リアクションの試行数（種別・結果別）",
		}, []string{"type", "result"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beefboard_challenges_total",
			Help: "チャレンジのイベント数",
		}, []string{"event"}),
		botdSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beefboard_botd_selections_total",
			Help: "今日のビーフ選出処理の結果別件数",
		}, []string{"result"}),
		botdFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beefboard_botd_finalizations_total",
			Help: "今日のビーフ確定処理の結果別件数",
		}, []string{"result"}),
		rotationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beefboard_botd_rotation_seconds",
			Help:    "今日のビーフのローテーション処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		counterDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beefboard_counter_drift_arguments",
			Help: "直近の整合性検査でカウンタ差分が見つかった議論数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beefboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.votes,
		c.reactions,
		c.challenges,
		c.botdSelections,
		c.botdFinalized,
		c.rotationLatency,
		c.counterDrift,
		c.httpStatus,
	)

	return c
}

// RecordVote は投票の試行結果を記録する。
func (c *Collector) RecordVote(side, result string) {
	c.votes.WithLabelValues(side, result).Inc()
}

// RecordReaction はリアクションの試行結果を記録する。
func (c *Collector) RecordReaction(reactionType, result string) {
	c.reactions.WithLabelValues(reactionType, result).Inc()
}

// RecordChallenge はチャレンジのイベント（created, completed など）を記録する。
func (c *Collector) RecordChallenge(event string) {
	c.challenges.WithLabelValues(event).Inc()
}

// RecordBOTDSelection は選出処理の結果を記録する。
func (c *Collector) RecordBOTDSelection(result string) {
	c.botdSelections.WithLabelValues(result).Inc()
}

// RecordBOTDFinalization は確定処理の結果を記録する。
func (c *Collector) RecordBOTDFinalization(result string) {
	c.botdFinalized.WithLabelValues(result).Inc()
}

// RecordRotationLatency はローテーション1回の処理時間を記録する。
func (c *Collector) RecordRotationLatency(duration time.Duration) {
	c.rotationLatency.Observe(duration.Seconds())
}

// RecordCounterDrift は整合性検査で見つかった差分件数を記録する。
func (c *Collector) RecordCounterDrift(count int) {
	c.counterDrift.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクス無効時やテストで使う。
type Nop struct{}

func (Nop) RecordVote(string, string)           {}
func (Nop) RecordReaction(string, string)       {}
func (Nop) RecordChallenge(string)              {}
func (Nop) RecordBOTDSelection(string)          {}
func (Nop) RecordBOTDFinalization(string)       {}
func (Nop) RecordRotationLatency(time.Duration) {}
func (Nop) RecordCounterDrift(int)              {}
func (Nop) RecordHTTPStatus(int)                {}

// OrNop はcがnilの場合にNopを返す。
func OrNop(c MetricsCollector) MetricsCollector {
	if c == nil {
		return Nop{}
	}
	return c
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
