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

// Package documents provides the document search backends used by similarity retrieval.
package documents

import (
	"context"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

const DefaultTopK = 4

// SearchOptions narrow a search.
type SearchOptions struct {
	TopK int `json:"top_k" yaml:"top_k"`
	// SimilarityThreshold drops documents scoring below it. Zero keeps everything.
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	// Filter keeps documents whose metadata values equal every entry.
	Filter map[string]string `json:"filter,omitempty" yaml:"filter,omitempty"`
}

func (o SearchOptions) topK() int {
	if o.TopK <= 0 {
		return DefaultTopK
	}
	return o.TopK
}

// Searcher returns the documents most similar to a query, best first.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]chat.Document, error)
}

func matches(doc chat.Document, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := doc.Metadata[k]
		if !ok {
			return false
		}
		if s, ok := got.(string); !ok || s != want {
			return false
		}
	}
	return true
}
