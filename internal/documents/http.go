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

package documents

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
	utls "github.com/llm-d-incubation/chat-engine/internal/util/tls"
)

const DefaultSearchEndpoint = "/v1/search"

// HTTPSearcherConfig holds configuration for a remote search service.
type HTTPSearcherConfig struct {
	BaseURL  string        `json:"base_url" yaml:"base_url"`
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	APIKey   string        `json:"api_key" yaml:"api_key"`
	TLS      utls.Config   `json:"tls" yaml:"tls"`
}

type searchRequest struct {
	Query               string            `json:"query"`
	TopK                int               `json:"top_k"`
	SimilarityThreshold float64           `json:"similarity_threshold,omitempty"`
	Filter              map[string]string `json:"filter,omitempty"`
}

type searchResponse struct {
	Documents []chat.Document `json:"documents"`
}

// HTTPSearcher queries a remote search service.
type HTTPSearcher struct {
	client   *resty.Client
	endpoint string
}

var _ Searcher = (*HTTPSearcher)(nil)

func NewHTTPSearcher(config HTTPSearcherConfig) (*HTTPSearcher, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("search base url is empty")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultSearchEndpoint
	}
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}
	tlsConfig, err := config.TLS.ClientConfig()
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		client.SetTLSClientConfig(tlsConfig)
	}
	return &HTTPSearcher{client: client, endpoint: config.Endpoint}, nil
}

func (s *HTTPSearcher) Search(ctx context.Context, query string, opts SearchOptions) ([]chat.Document, error) {
	logger := klog.FromContext(ctx)
	var out searchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(searchRequest{
			Query:               query,
			TopK:                opts.topK(),
			SimilarityThreshold: opts.SimilarityThreshold,
			Filter:              opts.Filter,
		}).
		SetResult(&out).
		Post(s.endpoint)
	if err != nil {
		logger.Error(err, "Search: request failed")
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err = fmt.Errorf("search request: HTTP %d: %s", resp.StatusCode(), resp.String())
		logger.Error(err, "Search:")
		return nil, err
	}
	logger.V(logging.DEBUG).Info("Search: succeeded", "documents", len(out.Documents))
	return out.Documents, nil
}
