/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// labels definition
const (
	// result labels
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultEmpty   = "empty"

	// reason labels
	ReasonNone         = "none"
	ReasonUserError    = "user_error"    // request validation failed
	ReasonBackendError = "backend_error" // generation backend failed
	ReasonToolError    = "tool_error"    // unknown tool, malformed arguments, callback failure
	ReasonToolOverrun  = "tool_overrun"  // tool loop exceeded its iteration cap
	ReasonStoreError   = "store_error"   // history or document store failed
	ReasonCancelled    = "cancelled"     // context cancelled or deadline exceeded
	ReasonUnknown      = "unknown"
)

const namespace = "chat_engine"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of engine runs",
		}, []string{"result", "reason"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of engine runs in seconds",
			// 50ms doubling up to ~27m
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 15),
		}, []string{"result"},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool callback invocations",
		}, []string{"tool", "result"},
	)

	backendRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Total number of retried backend calls",
		},
	)

	historyTrimmedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_trimmed_messages_total",
			Help:      "Total number of history messages dropped by the token window",
		},
	)

	// http api
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of chat api requests",
		}, []string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of chat api requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 18),
		}, []string{"method", "route"},
	)

	httpRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of chat api requests being served",
		},
	)

	turnsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_rejected_total",
			Help:      "Total number of chat turns refused because the concurrency limit was reached",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(toolCallsTotal)
	prometheus.MustRegister(backendRetriesTotal)
	prometheus.MustRegister(historyTrimmedMessages)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsInFlight)
	prometheus.MustRegister(turnsRejectedTotal)
}

// Recorder funcs

// RecordRun increments the run count and observes its duration.
func RecordRun(result, reason string, duration time.Duration) {
	runsTotal.WithLabelValues(result, reason).Inc()
	runDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordToolCall increments the invocation count of a tool.
func RecordToolCall(tool, result string) {
	toolCallsTotal.WithLabelValues(tool, result).Inc()
}

// RecordBackendRetry increments the backend retry count.
func RecordBackendRetry() {
	backendRetriesTotal.Inc()
}

// RecordHistoryTrimmed adds the number of history messages dropped for one turn.
func RecordHistoryTrimmed(n int) {
	if n > 0 {
		historyTrimmedMessages.Add(float64(n))
	}
}

// TrackHTTPRequest counts a request as in flight. The returned func finishes it
// under the matched route, never the raw path.
func TrackHTTPRequest(method string) func(route string, status int) {
	start := time.Now()
	httpRequestsInFlight.Inc()
	return func(route string, status int) {
		httpRequestsInFlight.Dec()
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordTurnRejected increments the count of turns refused by the concurrency limit.
func RecordTurnRejected() {
	turnsRejectedTotal.Inc()
}

// NewMetricsHandler serves the default registry.
func NewMetricsHandler() http.Handler {
	return promhttp.Handler()
}
