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

// Package middleware wraps the chat api handlers with request scoping and admission control.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/health"
	apimetrics "github.com/llm-d-incubation/chat-engine/internal/apiserver/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

type contextKey string

const (
	requestIDHeader            = "X-Request-ID"
	requestIDKey    contextKey = "requestID"
	unmatchedRoute             = "unmatched"
)

// probe endpoints are served without request scoping so scrapes stay out of logs and metrics.
var quietPaths = map[string]bool{
	apimetrics.MetricsPath: true,
	health.HealthPath:      true,
}

// RequestMiddleware gives every request an id, a scoped logger and route-level metrics.
func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if quietPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		finish := metrics.TrackHTTPRequest(r.Method)

		req, requestID := withRequestScope(r)
		w.Header().Set(requestIDHeader, requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		logger := klog.FromContext(req.Context())
		logger.V(logging.TRACE).Info("Request received", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		defer func() {
			// the mux fills in the matched pattern; raw paths would carry conversation ids
			route := req.Pattern
			if route == "" {
				route = unmatchedRoute
			}
			finish(route, rec.status)
			logger.V(logging.DEBUG).Info("Request served", "route", route, "status", rec.status)
		}()

		next.ServeHTTP(rec, req)
	})
}

// withRequestScope reuses the caller's request id or issues one, and binds it to the context logger.
func withRequestScope(r *http.Request) (*http.Request, string) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := klog.FromContext(r.Context()).WithValues("requestId", requestID)
	ctx := context.WithValue(klog.NewContext(r.Context(), logger), requestIDKey, requestID)
	return r.WithContext(ctx), requestID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// RequestIDFromContext returns the request id, or "unknown" outside a scoped request.
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}
