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

// The chat engine's configuration definitions.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/llm-d-incubation/chat-engine/internal/backend"
	"github.com/llm-d-incubation/chat-engine/internal/documents"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	uredis "github.com/llm-d-incubation/chat-engine/internal/util/redis"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"

	SourceNone = "none"
	SourceFS   = "fs"
	SourceHTTP = "http"
	SourceS3   = "s3"
)

type Config struct {
	Backend            backend.Config       `json:"backend" yaml:"backend"`
	Retry              generate.RetryPolicy `json:"retry" yaml:"retry"`
	ToolLoop           ToolLoopConfig       `json:"tool_loop" yaml:"tool_loop"`
	History            HistoryConfig        `json:"history" yaml:"history"`
	Documents          DocumentsConfig      `json:"documents" yaml:"documents"`
	SystemPrompt       string               `json:"system_prompt" yaml:"system_prompt"`
	APIAddress         string               `json:"api_address" yaml:"api_address"`
	MaxConcurrentTurns int                  `json:"max_concurrent_turns" yaml:"max_concurrent_turns"`
	MetricsAddress     string               `json:"metrics_address" yaml:"metrics_address"`
}

type ToolLoopConfig struct {
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

type HistoryConfig struct {
	Store     string                   `json:"store" yaml:"store"`
	MaxTokens int                      `json:"max_tokens" yaml:"max_tokens"`
	Redis     uredis.RedisClientConfig `json:"redis" yaml:"redis"`
	TTL       time.Duration            `json:"ttl" yaml:"ttl"`
	BoltPath  string                   `json:"bolt_path" yaml:"bolt_path"`
}

type DocumentsConfig struct {
	Source              string                       `json:"source" yaml:"source"`
	TopK                int                          `json:"top_k" yaml:"top_k"`
	SimilarityThreshold float64                      `json:"similarity_threshold" yaml:"similarity_threshold"`
	FS                  documents.FSConfig           `json:"fs" yaml:"fs"`
	HTTP                documents.HTTPSearcherConfig `json:"http" yaml:"http"`
	S3                  documents.S3Config           `json:"s3" yaml:"s3"`
	ContextTemplate     string                       `json:"context_template" yaml:"context_template"`
}

func (d DocumentsConfig) SearchOptions() documents.SearchOptions {
	return documents.SearchOptions{TopK: d.TopK, SimilarityThreshold: d.SimilarityThreshold}
}

// LoadFromYaml loads the configuration from a YAML file.
func (c *Config) LoadFromYAML(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return err
	}
	return nil
}

// Validate reports the first setting that cannot be served.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.History.MaxTokens <= 0 {
		return fmt.Errorf("history.max_tokens must be positive, got %d", c.History.MaxTokens)
	}
	switch c.History.Store {
	case StoreMemory:
	case StoreRedis:
		if c.History.Redis.Url == "" {
			return fmt.Errorf("history.redis.url is required for the redis store")
		}
	case StoreBolt:
		if c.History.BoltPath == "" {
			return fmt.Errorf("history.bolt_path is required for the bolt store")
		}
	default:
		return fmt.Errorf("unknown history.store %q", c.History.Store)
	}
	switch c.Documents.Source {
	case SourceNone:
	case SourceFS:
		if c.Documents.FS.BasePath == "" {
			return fmt.Errorf("documents.fs.base_path is required for the fs source")
		}
	case SourceHTTP:
		if c.Documents.HTTP.BaseURL == "" {
			return fmt.Errorf("documents.http.base_url is required for the http source")
		}
	case SourceS3:
		if c.Documents.S3.Bucket == "" {
			return fmt.Errorf("documents.s3.bucket is required for the s3 source")
		}
	default:
		return fmt.Errorf("unknown documents.source %q", c.Documents.Source)
	}
	return nil
}

// NewConfig returns a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Backend: backend.Config{
			Endpoint: backend.DefaultEndpoint,
			Timeout:  5 * time.Minute,
		},
		Retry:    generate.DefaultRetryPolicy(),
		ToolLoop: ToolLoopConfig{MaxIterations: generate.DefaultMaxIterations},
		History: HistoryConfig{
			Store:     StoreMemory,
			MaxTokens: 2000,
			Redis:     uredis.RedisClientConfig{ServiceName: "chat-engine", Timeout: 5 * time.Second},
			TTL:       24 * time.Hour,
		},
		Documents: DocumentsConfig{
			Source: SourceNone,
			TopK:   documents.DefaultTopK,
		},
		APIAddress:         ":8080",
		MaxConcurrentTurns: 64,
		MetricsAddress:     ":9090",
	}
}
