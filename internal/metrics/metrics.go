// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// イベント取得クライアントとお気に入りサービスから利用する。
type Collector struct {
	fetchSuccess   prometheus.Counter
	fetchFail      *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	favoriteToggle *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_fetch_success_total",
			Help: "イベント取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_fetch_fail_total",
			Help: "イベント取得失敗のエラー分類別の合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventman_fetch_latency_seconds",
			Help:    "イベント取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		favoriteToggle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_favorite_toggle_total",
			Help: "お気に入りトグルの操作別の合計数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.httpStatus,
		c.fetchLatency,
		c.favoriteToggle,
	)

	return c
}

// RecordFetchSuccess はイベント取得成功を記録する。
func (c *Collector) RecordFetchSuccess() {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure はイベント取得失敗をエラー分類付きで記録する。
func (c *Collector) RecordFetchFailure(kind string) {
	c.fetchFail.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はイベント取得のレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordFavoriteToggle はお気に入りトグルを記録する。
func (c *Collector) RecordFavoriteToggle(added bool) {
	action := "remove"
	if added {
		action = "add"
	}
	c.favoriteToggle.WithLabelValues(action).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
