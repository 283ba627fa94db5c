package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	received      *prom.CounterVec
	ignored       *prom.CounterVec
	stored        *prom.CounterVec
	notifications *prom.CounterVec
	notifyTime    prom.Histogram
	repoOps       *prom.CounterVec
	repoOpTime    *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.received = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "prbridge",
			Name:      "events_received_total",
			Help:      "Webhook deliveries received by event type",
		}, []string{"event_type"})
		pr.ignored = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "prbridge",
			Name:      "events_ignored_total",
			Help:      "Webhook deliveries dropped by the normalizer",
		}, []string{"event_type", "reason"})
		pr.stored = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "prbridge",
			Name:      "events_stored_total",
			Help:      "Events appended to the event store",
		}, []string{"event_type"})
		pr.notifications = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "prbridge",
			Name:      "notifications_total",
			Help:      "Slack notification outcomes",
		}, []string{"result"})
		pr.notifyTime = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "prbridge",
			Name:      "notify_duration_seconds",
			Help:      "Duration of Slack webhook deliveries",
			Buckets:   prom.DefBuckets,
		})
		pr.repoOps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "prbridge",
			Name:      "repo_operations_total",
			Help:      "GitHub repository operation results",
		}, []string{"op", "result"})
		pr.repoOpTime = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "prbridge",
			Name:      "repo_operation_duration_seconds",
			Help:      "Duration of GitHub repository operations",
			Buckets:   prom.DefBuckets,
		}, []string{"op"})
		reg.MustRegister(pr.received, pr.ignored, pr.stored, pr.notifications, pr.notifyTime, pr.repoOps, pr.repoOpTime)
	})
	return pr
}

func (p *PrometheusRecorder) IncEventReceived(eventType string) {
	p.received.WithLabelValues(eventType).Inc()
}

func (p *PrometheusRecorder) IncEventIgnored(eventType, reason string) {
	p.ignored.WithLabelValues(eventType, reason).Inc()
}

func (p *PrometheusRecorder) IncEventStored(eventType string) {
	p.stored.WithLabelValues(eventType).Inc()
}

func (p *PrometheusRecorder) IncNotification(result ResultLabel) {
	p.notifications.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveNotifyDuration(d time.Duration) {
	p.notifyTime.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRepoOperation(op string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.repoOps.WithLabelValues(op, result).Inc()
}

func (p *PrometheusRecorder) ObserveRepoOperationDuration(op string, d time.Duration) {
	p.repoOpTime.WithLabelValues(op).Observe(d.Seconds())
}


// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.DefaultRegisterer.(*prom.Registry)
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
