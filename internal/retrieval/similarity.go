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

package retrieval

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/documents"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

// SimilarityRetriever searches documents with the turn's user messages as the query.
type SimilarityRetriever struct {
	searcher documents.Searcher
	options  documents.SearchOptions
}

var _ Retriever = (*SimilarityRetriever)(nil)

func NewSimilarityRetriever(searcher documents.Searcher, options documents.SearchOptions) *SimilarityRetriever {
	return &SimilarityRetriever{searcher: searcher, options: options}
}

func (r *SimilarityRetriever) Retrieve(ctx context.Context, req *Request) (chat.RetrievalResult, error) {
	query := UserQuery(req.Chat.Messages)
	if strings.TrimSpace(query) == "" {
		return chat.RetrievalResult{}, nil
	}
	docs, err := r.searcher.Search(ctx, query, r.options)
	if err != nil {
		return chat.RetrievalResult{}, fmt.Errorf("search documents: %w", err)
	}
	klog.FromContext(ctx).V(logging.DEBUG).Info("SimilarityRetriever: retrieved", "documents", len(docs))
	return chat.RetrievalResult{Documents: docs}, nil
}

// UserQuery joins the contents of the user messages with newlines.
func UserQuery(msgs []chat.Message) string {
	users := chat.FilterRole(msgs, chat.RoleUser)
	parts := make([]string, len(users))
	for i, m := range users {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
