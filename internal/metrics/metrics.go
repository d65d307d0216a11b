// Package metrics holds the Prometheus collectors shared by the store and the access gate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	storeOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_store_operations_total",
		Help: "Record store operations by operation and result.",
	}, []string{"op", "result"})

	logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_logins_total",
		Help: "Access gate attempts by result.",
	}, []string{"result"})

	aiReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_ai_reports_total",
		Help: "AI briefing requests by provider and result.",
	}, []string{"provider", "result"})
)

func init() {
	registry.MustRegister(storeOps, logins, aiReports)
	registry.MustRegister(collectors.NewGoCollector())
}

// Store records the outcome of one store operation. Degraded reads pass result "degraded".
func Store(op string, err error) {
	storeOps.WithLabelValues(op, result(err)).Inc()
}

func StoreDegraded(op string) {
	storeOps.WithLabelValues(op, "degraded").Inc()
}

func Login(result string) {
	logins.WithLabelValues(result).Inc()
}

func AIReport(provider, result string) {
	aiReports.WithLabelValues(provider, result).Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
