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

// The file provides the route registration and response helpers shared by the api handlers.
package common

import (
	"context"
	"encoding/json"
	"net/http"

	"k8s.io/klog/v2"
)

type Route struct {
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type ApiHandler interface {
	GetRoutes() []Route
}

// RegisterHandler adds every route of the handler to the mux as a method qualified pattern.
func RegisterHandler(mux *http.ServeMux, handler ApiHandler) {
	for _, route := range handler.GetRoutes() {
		mux.HandleFunc(route.Method+" "+route.Pattern, route.HandlerFunc)
	}
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		klog.FromContext(ctx).Error(err, "WriteJSON:")
	}
}

// WriteError writes an error body whose type is derived from the status code.
func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(ctx, w, status, ErrorResponse{Error: ErrorBody{Message: message, Type: errorType(status)}})
}

func errorType(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found_error"
	case status == http.StatusUnprocessableEntity:
		return "tool_error"
	case status < 500:
		return "invalid_request_error"
	default:
		return "server_error"
	}
}
