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

package main

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/augment"
	"github.com/llm-d-incubation/chat-engine/internal/backend"
	"github.com/llm-d-incubation/chat-engine/internal/config"
	"github.com/llm-d-incubation/chat-engine/internal/documents"
	"github.com/llm-d-incubation/chat-engine/internal/engine"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/retrieval"
	"github.com/llm-d-incubation/chat-engine/internal/tokens"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

func newHistoryStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Store {
	case config.StoreRedis:
		return history.NewRedisStore(ctx, &cfg.History.Redis, cfg.History.TTL)
	case config.StoreBolt:
		return history.NewBoltStore(ctx, cfg.History.BoltPath)
	default:
		return history.NewMemoryStore(), nil
	}
}

// newSearcher returns nil when no document source is configured.
func newSearcher(ctx context.Context, cfg *config.Config) (documents.Searcher, error) {
	switch cfg.Documents.Source {
	case config.SourceHTTP:
		return documents.NewHTTPSearcher(cfg.Documents.HTTP)
	case config.SourceS3:
		loader, err := documents.NewS3Loader(ctx, cfg.Documents.S3)
		if err != nil {
			return nil, err
		}
		docs, err := loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		klog.InfoS("Loaded documents from s3", "bucket", cfg.Documents.S3.Bucket, "documents", len(docs))
		return documents.NewMemoryIndex(docs...), nil
	case config.SourceFS:
		loader, err := documents.NewFSLoader(cfg.Documents.FS)
		if err != nil {
			return nil, err
		}
		docs, err := loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		klog.InfoS("Loaded documents from disk", "path", cfg.Documents.FS.BasePath, "documents", len(docs))
		return documents.NewMemoryIndex(docs...), nil
	default:
		return nil, nil
	}
}

type timeRequest struct {
	Timezone string `json:"timezone"`
}

func newToolRegistry() (*tools.Registry, error) {
	return tools.NewRegistry(
		tools.NewFunc("currentTime", "Get the current time in an IANA timezone, UTC by default",
			`{"type":"object","properties":{"timezone":{"type":"string"}}}`,
			func(_ context.Context, in timeRequest) (string, error) {
				loc := time.UTC
				if in.Timezone != "" {
					var err error
					if loc, err = time.LoadLocation(in.Timezone); err != nil {
						return "", err
					}
				}
				return time.Now().In(loc).Format(time.RFC3339), nil
			}),
	)
}

func newEngine(ctx context.Context, cfg *config.Config, store history.Store, registry *tools.Registry) (*engine.Engine, error) {
	httpBackend, err := backend.NewHTTPBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	generator := generate.NewToolCallingGenerator(
		generate.NewBackendGenerator(generate.NewRetryingBackend(httpBackend, cfg.Retry)),
		registry,
		cfg.ToolLoop.MaxIterations,
	)

	window, err := retrieval.NewTokenWindowRetriever(store,
		tokens.NewCharEstimator(tokens.DefaultCharactersPerToken), cfg.History.MaxTokens)
	if err != nil {
		return nil, err
	}
	retrievers := []retrieval.Retriever{window}
	var augmentors []augment.Augmentor

	searcher, err := newSearcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if searcher != nil {
		retrievers = append(retrievers, retrieval.NewSimilarityRetriever(searcher, cfg.Documents.SearchOptions()))
		contextAugmentor, err := augment.NewContextAugmentor(cfg.Documents.ContextTemplate)
		if err != nil {
			return nil, err
		}
		augmentors = append(augmentors, contextAugmentor)
	}
	augmentors = append(augmentors, augment.NewHistoryAugmentor())

	return engine.New(generator,
		engine.WithSystemPrompt(cfg.SystemPrompt),
		engine.WithRetrievers(retrievers...),
		engine.WithAugmentors(augmentors...),
		engine.WithListener(engine.NewHistoryListener(store)),
	), nil
}
