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

// Package health serves the liveness endpoint backed by dependency checks.
package health

import (
	"context"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/common"
)

const (
	HealthPath   = "/health"
	checkTimeout = 2 * time.Second
)

// Checker is one named dependency probe.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthApiHandler struct {
	checkers []Checker
}

func NewHealthApiHandler(checkers ...Checker) *HealthApiHandler {
	return &HealthApiHandler{checkers: checkers}
}

func (c *HealthApiHandler) GetRoutes() []common.Route {
	return []common.Route{
		{Method: http.MethodGet, Pattern: HealthPath, HandlerFunc: c.HealthHandler},
		{Method: http.MethodHead, Pattern: HealthPath, HandlerFunc: c.HealthHandler},
	}
}

// HealthHandler answers "OK", or 503 naming the first failing dependency.
func (c *HealthApiHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if name, err := c.firstFailure(r.Context()); err != nil {
		klog.FromContext(r.Context()).Error(err, "Health check failed", "dependency", name)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("UNAVAILABLE: " + name))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (c *HealthApiHandler) firstFailure(ctx context.Context) (string, error) {
	for _, checker := range c.checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checker.Check(cctx)
		cancel()
		if err != nil {
			return checker.Name, err
		}
	}
	return "", nil
}
