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

// Package history persists completed exchanges per conversation.
package history

import (
	"context"
	"errors"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

var (
	ErrEmptyConversationID = errors.New("empty conversation id")
	ErrEmptyExchange       = errors.New("exchange has no messages")
)

// Store is an append-only, per-conversation log of exchanges.
// Appends to the same conversation are serialised.
type Store interface {
	// Get returns the exchanges in append order, or none for an unknown id.
	Get(ctx context.Context, conversationID string) ([]chat.Exchange, error)
	Append(ctx context.Context, exchange chat.Exchange) error
	Clear(ctx context.Context, conversationID string) error
	Close() error
}

func validate(exchange chat.Exchange) error {
	if exchange.ConversationID == "" {
		return ErrEmptyConversationID
	}
	if len(exchange.Messages) == 0 {
		return ErrEmptyExchange
	}
	return nil
}
