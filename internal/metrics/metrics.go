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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordChatRequest(status string)
	RecordEmbeddingLatency(duration time.Duration)
	RecordGenerationLatency(duration time.Duration)
	RecordGenerationRetry()
	RecordUpstreamStatus(service string, statusCode int)
	RecordSyllabusIngested(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	chatRequests      *prometheus.CounterVec
	embeddingLatency  prometheus.Histogram
	generationLatency prometheus.Histogram
	generationRetries prometheus.Counter
	upstreamStatus    *prometheus.CounterVec
	syllabusIngested  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kacchinavi_chat_requests_total",
			Help: "チャットリクエストの結果別合計数",
		}, []string{"status"}),
		embeddingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kacchinavi_embedding_latency_seconds",
			Help:    "埋め込みAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kacchinavi_generation_latency_seconds",
			Help:    "回答生成API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		generationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kacchinavi_generation_retries_total",
			Help: "回答生成のリトライ回数の合計",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kacchinavi_upstream_status_total",
			Help: "外部APIのステータスコード別レスポンス数",
		}, []string{"service", "status_code"}),
		syllabusIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kacchinavi_syllabus_ingested_total",
			Help: "取り込まれたシラバスの合計数",
		}),
	}

	reg.MustRegister(
		c.chatRequests,
		c.embeddingLatency,
		c.generationLatency,
		c.generationRetries,
		c.upstreamStatus,
		c.syllabusIngested,
	)

	return c
}

// RecordChatRequest はチャットリクエストの結果を記録する。
// statusは"success"または"error"。
func (c *Collector) RecordChatRequest(status string) {
	c.chatRequests.WithLabelValues(status).Inc()
}

// RecordEmbeddingLatency は埋め込みAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordEmbeddingLatency(duration time.Duration) {
	c.embeddingLatency.Observe(duration.Seconds())
}

// RecordGenerationLatency は回答生成API呼び出しのレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.generationLatency.Observe(duration.Seconds())
}

// RecordGenerationRetry は回答生成のリトライを記録する。
func (c *Collector) RecordGenerationRetry() {
	c.generationRetries.Inc()
}

// RecordUpstreamStatus は外部APIのステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(service string, statusCode int) {
	c.upstreamStatus.WithLabelValues(service, strconv.Itoa(statusCode)).Inc()
}

// RecordSyllabusIngested は取り込まれたシラバス数を記録する。
func (c *Collector) RecordSyllabusIngested(count int) {
	c.syllabusIngested.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
