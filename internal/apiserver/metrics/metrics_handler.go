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

// Package metrics exposes the prometheus registry on the chat api.
package metrics

import (
	"net/http"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/common"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
)

const MetricsPath = "/metrics"

type MetricsApiHandler struct {
	handler http.Handler
}

func NewMetricsApiHandler() *MetricsApiHandler {
	return &MetricsApiHandler{handler: metrics.NewMetricsHandler()}
}

func (c *MetricsApiHandler) GetRoutes() []common.Route {
	return []common.Route{{Method: http.MethodGet, Pattern: MetricsPath, HandlerFunc: c.handler.ServeHTTP}}
}
