// Package metrics exposes Prometheus counters for chat replies, estimate
// deliveries and knowledge-base reloads. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors.
type Metrics struct {
	registry    *prometheus.Registry
	chatReplies *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	submissions *prometheus.CounterVec
	kbReloads   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arxenbot",
			Name:      "chat_replies_total",
			Help:      "Chat replies by source (knowledge-base or fallback) and category.",
		}, []string{"source", "category"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arxenbot",
			Name:      "estimate_deliveries_total",
			Help:      "Estimate delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arxenbot",
			Name:      "estimate_submissions_total",
			Help:      "Estimate submissions by outcome (complete, failed, pending).",
		}, []string{"outcome"}),
		kbReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arxenbot",
			Name:      "kb_reloads_total",
			Help:      "Knowledge base reload attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chatReplies, m.deliveries, m.submissions, m.kbReloads,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ChatReply counts one chat reply.
func (m *Metrics) ChatReply(source, category string) {
	if m == nil {
		return
	}
	m.chatReplies.WithLabelValues(source, category).Inc()
}

// Delivery counts one delivery attempt on channel ("email", "relay").
func (m *Metrics) Delivery(channel string, err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, result(err)).Inc()
}

// Submission counts one submission outcome.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// KBReload counts one knowledge-base reload attempt.
func (m *Metrics) KBReload(err error) {
	if m == nil {
		return
	}
	m.kbReloads.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
