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

// Package retrieval gathers documents and prior exchanges for a turn.
package retrieval

import (
	"context"
	"fmt"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/tokens"
)

// Request is the input shared by all retrievers of one turn.
type Request struct {
	Chat *chat.Request
	// Tokens is the running token total of the turn.
	Tokens *tokens.Counter
}

func NewRequest(req *chat.Request) *Request {
	return &Request{Chat: req, Tokens: &tokens.Counter{}}
}

// Retriever contributes documents or exchanges to a turn. It may consume req.Tokens.
type Retriever interface {
	Retrieve(ctx context.Context, req *Request) (chat.RetrievalResult, error)
}

// Func adapts a function to Retriever.
type Func func(ctx context.Context, req *Request) (chat.RetrievalResult, error)

func (f Func) Retrieve(ctx context.Context, req *Request) (chat.RetrievalResult, error) {
	return f(ctx, req)
}

// Fold runs the retrievers in order and merges their results left to right,
// starting from the empty result. The first failure aborts the fold.
func Fold(ctx context.Context, req *Request, retrievers []Retriever) (chat.RetrievalResult, error) {
	var merged chat.RetrievalResult
	for i, r := range retrievers {
		res, err := r.Retrieve(ctx, req)
		if err != nil {
			return chat.RetrievalResult{}, fmt.Errorf("retriever %d: %w", i, err)
		}
		merged = merged.Merge(res)
	}
	return merged, nil
}
