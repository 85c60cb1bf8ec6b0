// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordDonationCreated()
	RecordStatusTransition(status string)
	RecordAcceptConflict()
	RecordUploadSuccess()
	RecordUploadFailure(reason string)
	RecordHTTPStatus(statusCode int)
	SetEventSubscribers(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	donationCreated  prometheus.Counter
	statusTransition *prometheus.CounterVec
	acceptConflict   prometheus.Counter
	uploadSuccess    prometheus.Counter
	uploadFail       *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	eventSubscribers prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		donationCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_donation_created_total",
			Help: "作成された寄付の合計数",
		}),
		statusTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_donation_status_transition_total",
			Help: "遷移先状態別の寄付状態遷移数",
		}, []string{"status"}),
		acceptConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_donation_accept_conflict_total",
			Help: "引き受け要求の競合（後着側）の合計数",
		}),
		uploadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_image_upload_success_total",
			Help: "画像アップロード成功の合計数",
		}),
		uploadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_image_upload_fail_total",
			Help: "理由別の画像アップロード失敗数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		eventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_event_subscribers",
			Help: "現在のイベントストリーム購読者数",
		}),
	}

	reg.MustRegister(
		c.donationCreated,
		c.statusTransition,
		c.acceptConflict,
		c.uploadSuccess,
		c.uploadFail,
		c.httpStatus,
		c.eventSubscribers,
	)

	return c
}

// RecordDonationCreated は寄付の作成を記録する。
func (c *Collector) RecordDonationCreated() {
	c.donationCreated.Inc()
}

// RecordStatusTransition は寄付の状態遷移を記録する。
func (c *Collector) RecordStatusTransition(status string) {
	c.statusTransition.WithLabelValues(status).Inc()
}

// RecordAcceptConflict は引き受け要求の競合を記録する。
func (c *Collector) RecordAcceptConflict() {
	c.acceptConflict.Inc()
}

// RecordUploadSuccess は画像アップロード成功を記録する。
func (c *Collector) RecordUploadSuccess() {
	c.uploadSuccess.Inc()
}

// RecordUploadFailure は画像アップロード失敗を記録する。
func (c *Collector) RecordUploadFailure(reason string) {
	c.uploadFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetEventSubscribers は現在のイベントストリーム購読者数を記録する。
func (c *Collector) SetEventSubscribers(count int) {
	c.eventSubscribers.Set(float64(count))
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
