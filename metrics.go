package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strategy_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strategy_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	scenarioEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strategy_scenario_evaluations_total",
		Help: "Team seasons evaluated against a scenario, by entry point",
	}, []string{"mode"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strategy_http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter",
	})
)

// observeRequest records one finished request
func observeRequest(r *http.Request, status int, elapsed time.Duration) {
	route := "unmatched"
	if current := mux.CurrentRoute(r); current != nil {
		if tmpl, err := current.GetPathTemplate(); err == nil {
			route = tmpl
		}
	}
	httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
