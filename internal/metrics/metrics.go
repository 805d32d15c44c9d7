// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン試行の結果ラベル
const (
	LoginSuccess     = "success"
	LoginFailure     = "failure"
	LoginRateLimited = "rate_limited"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordLogin(outcome string)
	RecordRateLimited(scope string)
	RecordImport(imported, skipped, failed int)
	RecordCatalogRender(format string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	logins        *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	importRows    *prometheus.CounterVec
	catalogRender *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seleto_http_requests_total",
			Help: "HTTPステータスコード別のリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seleto_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seleto_admin_login_total",
			Help: "管理者ログイン試行の結果別件数",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seleto_rate_limited_total",
			Help: "レート制限で拒否したリクエスト数",
		}, []string{"scope"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seleto_import_rows_total",
			Help: "CSVインポートで処理した行数",
		}, []string{"result"}),
		catalogRender: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seleto_catalog_render_seconds",
			Help:    "印刷用カタログの生成時間（秒）",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.logins,
		c.rateLimited,
		c.importRows,
		c.catalogRender,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。scopeは"login"または"api"。
func (c *Collector) RecordRateLimited(scope string) {
	c.rateLimited.WithLabelValues(scope).Inc()
}

// RecordImport はCSVインポートの行数を結果別に記録する。
func (c *Collector) RecordImport(imported, skipped, failed int) {
	c.importRows.WithLabelValues("imported").Add(float64(imported))
	c.importRows.WithLabelValues("skipped").Add(float64(skipped))
	c.importRows.WithLabelValues("failed").Add(float64(failed))
}

// RecordCatalogRender は印刷用カタログの生成時間を記録する。
func (c *Collector) RecordCatalogRender(format string, duration time.Duration) {
	c.catalogRender.WithLabelValues(format).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクスを無効にした構成やテストで使用する。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
func (Nop) RecordLogin(string)                           {}
func (Nop) RecordRateLimited(string)                     {}
func (Nop) RecordImport(int, int, int)                   {}
func (Nop) RecordCatalogRender(string, time.Duration)    {}
