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

package history

import (
	"context"
	"sync"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

type conversation struct {
	mu        sync.Mutex
	exchanges []chat.Exchange
}

// MemoryStore keeps exchanges in process memory with one lock per conversation.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*conversation
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*conversation)}
}

func (s *MemoryStore) conversation(id string, create bool) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok && create {
		c = &conversation{}
		s.conversations[id] = c
	}
	return c
}

func (s *MemoryStore) Get(_ context.Context, conversationID string) ([]chat.Exchange, error) {
	c := s.conversation(conversationID, false)
	if c == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Exchange, len(c.exchanges))
	for i, e := range c.exchanges {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, exchange chat.Exchange) error {
	if err := validate(exchange); err != nil {
		return err
	}
	c := s.conversation(exchange.ConversationID, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, exchange.Clone())
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
