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

// Package generate invokes the generation backend and drives the tool call loop.
package generate

import (
	"context"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

// Backend is the model call. Failures that may succeed on retry expose IsRetryable() bool.
type Backend interface {
	Call(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error)
}

// Generator turns a prompt into a generation result.
type Generator interface {
	Generate(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error)

func (f BackendFunc) Call(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error) {
	return f(ctx, prompt)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error) {
	return f(ctx, prompt)
}

// BackendGenerator passes prompts straight to a Backend.
type BackendGenerator struct {
	backend Backend
}

func NewBackendGenerator(backend Backend) *BackendGenerator {
	return &BackendGenerator{backend: backend}
}

func (g *BackendGenerator) Generate(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error) {
	res, err := g.backend.Call(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &chat.GenerationResult{}
	}
	return res, nil
}
