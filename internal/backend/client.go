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

// Package backend calls a remote chat generation gateway over HTTP.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
	utls "github.com/llm-d-incubation/chat-engine/internal/util/tls"
)

const DefaultEndpoint = "/v1/chat/generate"

// Config holds configuration for the HTTP backend.
type Config struct {
	BaseURL         string        `json:"base_url" yaml:"base_url"`
	Endpoint        string        `json:"endpoint" yaml:"endpoint"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `json:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	APIKey          string        `json:"api_key" yaml:"api_key"`
	TLS             utls.Config   `json:"tls" yaml:"tls"`
	// Defaults are overlaid by the options carried on each prompt.
	Defaults *chat.ModelOptions `json:"defaults" yaml:"defaults"`
}

type generateRequest struct {
	Messages []chat.Message     `json:"messages"`
	Options  any                `json:"options,omitempty"`
	Tools    []tools.Definition `json:"tools,omitempty"`
}

// HTTPBackend posts prompts to the gateway and decodes the candidates it returns.
type HTTPBackend struct {
	client   *resty.Client
	endpoint string
	defaults *chat.ModelOptions
}

var _ generate.Backend = (*HTTPBackend)(nil)

// NewHTTPBackend builds a client for the gateway at config.BaseURL. Each Call makes a single
// attempt; resty retries stay off so that retrying is left to generate.RetryingBackend.
func NewHTTPBackend(config Config) (*HTTPBackend, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend base url is empty")
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = config.MaxIdleConns
	transport.MaxIdleConnsPerHost = config.MaxIdleConns
	transport.IdleConnTimeout = config.IdleConnTimeout
	tlsConfig, err := config.TLS.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("backend tls: %w", err)
	}
	if tlsConfig != nil {
		if tlsConfig.InsecureSkipVerify {
			klog.Warning("TLS certificate verification is disabled for the backend")
		}
		transport.TLSClientConfig = tlsConfig
	}
	client.SetTransport(transport)

	return &HTTPBackend{client: client, endpoint: config.Endpoint, defaults: config.Defaults}, nil
}

func (b *HTTPBackend) Call(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error) {
	requestID := uuid.NewString()
	logger := klog.FromContext(ctx).WithValues("requestId", requestID)

	var out chat.GenerationResult
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetBody(generateRequest{
			Messages: prompt.Messages,
			Options:  b.options(prompt.Options),
			Tools:    prompt.Tools,
		}).
		SetResult(&out).
		Post(b.endpoint)
	if err != nil {
		return nil, requestError(ctx, err)
	}
	if resp.StatusCode() != http.StatusOK {
		berr := responseError(resp.StatusCode(), resp.Body())
		logger.V(logging.INFO).Info("Backend call failed", "status", resp.StatusCode(), "category", berr.Category)
		return nil, berr
	}
	logger.V(logging.DEBUG).Info("Backend call succeeded",
		"generations", len(out.Generations), "totalTokens", out.Usage.TotalTokens)
	return &out, nil
}

// options merges the configured defaults with what the prompt carries.
// Options of other types are sent as they are.
func (b *HTTPBackend) options(opts chat.Options) any {
	switch o := opts.(type) {
	case nil:
		if b.defaults == nil {
			return nil
		}
		return b.defaults
	case *chat.ModelOptions:
		if merged := chat.Overlay(b.defaults, o); merged != nil {
			return merged
		}
		return nil
	default:
		return o
	}
}

func requestError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Category: ErrCategoryUnknown, Message: "request cancelled", RawError: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Error{Category: ErrCategoryServer, Message: "request timeout", RawError: err}
	}
	return &Error{Category: ErrCategoryServer, Message: fmt.Sprintf("failed to execute request: %v", err), RawError: err}
}

func responseError(statusCode int, body []byte) *Error {
	var errorResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	message := string(body)
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		message = errorResp.Error.Message
	}
	return &Error{
		Category:   categoryOf(statusCode),
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, message),
		RawError:   fmt.Errorf("status code: %d, body: %s", statusCode, string(body)),
	}
}
