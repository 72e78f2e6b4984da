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

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/tokens"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

// TokenWindowRetriever replays as much stored history as fits MaxTokens.
type TokenWindowRetriever struct {
	store     history.Store
	estimator tokens.Estimator
	maxTokens int
}

var _ Retriever = (*TokenWindowRetriever)(nil)

// NewTokenWindowRetriever reads history from store and sizes it with estimator; maxTokens must be positive.
func NewTokenWindowRetriever(store history.Store, estimator tokens.Estimator, maxTokens int) (*TokenWindowRetriever, error) {
	if store == nil {
		return nil, fmt.Errorf("history store is nil")
	}
	if estimator == nil {
		return nil, fmt.Errorf("token estimator is nil")
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	return &TokenWindowRetriever{store: store, estimator: estimator, maxTokens: maxTokens}, nil
}

// Retrieve returns the stored exchanges without their system messages. When the history
// is over budget, messages are dropped from the front of each exchange, oldest exchange
// first, until the running total fits. A partially trimmed exchange keeps its suffix;
// emptied exchanges are omitted.
func (r *TokenWindowRetriever) Retrieve(ctx context.Context, req *Request) (chat.RetrievalResult, error) {
	logger := klog.FromContext(ctx)
	stored, err := r.store.Get(ctx, req.Chat.ConversationID)
	if err != nil {
		return chat.RetrievalResult{}, fmt.Errorf("load history: %w", err)
	}

	exchanges := make([]chat.Exchange, 0, len(stored))
	var flattened []chat.Message
	for _, ex := range stored {
		msgs := chat.WithoutRole(ex.Messages, chat.RoleSystem)
		exchanges = append(exchanges, chat.Exchange{ConversationID: ex.ConversationID, Messages: msgs})
		flattened = append(flattened, msgs...)
	}

	running := req.Tokens.Add(r.estimator.Estimate(req.Chat.Messages))
	historyTokens := r.estimator.Estimate(flattened)
	if historyTokens <= r.maxTokens {
		return chat.RetrievalResult{Exchanges: nonEmpty(exchanges)}, nil
	}

	total := running + historyTokens
	dropped := 0
	var kept []chat.Exchange
	for _, ex := range exchanges {
		msgs := ex.Messages
		for len(msgs) > 0 && total > r.maxTokens {
			total -= r.estimator.EstimateMessage(msgs[0])
			msgs = msgs[1:]
			dropped++
		}
		if len(msgs) > 0 {
			kept = append(kept, chat.Exchange{ConversationID: ex.ConversationID, Messages: msgs})
		}
	}
	metrics.RecordHistoryTrimmed(dropped)
	logger.V(logging.DEBUG).Info("TokenWindowRetriever: trimmed history",
		"historyTokens", historyTokens, "maxTokens", r.maxTokens, "droppedMessages", dropped, "total", total)
	return chat.RetrievalResult{Exchanges: kept}, nil
}

func nonEmpty(exchanges []chat.Exchange) []chat.Exchange {
	var out []chat.Exchange
	for _, ex := range exchanges {
		if len(ex.Messages) > 0 {
			out = append(out, ex)
		}
	}
	return out
}
