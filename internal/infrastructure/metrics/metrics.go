package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务的 Prometheus 指标，每个实例使用独立的 Registry
type Metrics struct {
	Registry *prometheus.Registry

	AccessRequests    *prometheus.CounterVec // 提交的访问申请，按结果
	AccessDecisions   *prometheus.CounterVec // 审批结果，按 approved/declined/conflict
	Notifications     *prometheus.CounterVec // 创建的通知，按类型
	StatusPolls       prometheus.Counter     // /api/user/me 请求次数
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	EmailFailures     prometheus.Counter
	MQTTPublishErrors prometheus.Counter
}

// New 创建并注册所有指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		AccessRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "access_requests_total",
			Help:      "Device access requests submitted, by result.",
		}, []string{"result"}),
		AccessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "access_decisions_total",
			Help:      "Admin decisions on access requests, by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "notifications_created_total",
			Help:      "Notifications created, by type.",
		}, []string{"type"}),
		StatusPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "user_status_polls_total",
			Help:      "Requests to the current-user endpoint.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aquasense",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		EmailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "email_failures_total",
			Help:      "Outbound emails that failed to send.",
		}),
		MQTTPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aquasense",
			Name:      "mqtt_publish_errors_total",
			Help:      "MQTT publishes that failed.",
		}),
	}

	reg.MustRegister(
		m.AccessRequests, m.AccessDecisions, m.Notifications, m.StatusPolls,
		m.HTTPRequests, m.HTTPDuration, m.EmailFailures, m.MQTTPublishErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
