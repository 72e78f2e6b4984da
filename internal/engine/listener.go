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

package engine

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

// Listener observes successful turns.
type Listener interface {
	OnComplete(ctx context.Context, req *chat.Request, res *chat.GenerationResult) error
}

type ListenerFunc func(ctx context.Context, req *chat.Request, res *chat.GenerationResult) error

func (f ListenerFunc) OnComplete(ctx context.Context, req *chat.Request, res *chat.GenerationResult) error {
	return f(ctx, req, res)
}

// HistoryListener records each turn as an exchange: the request messages followed
// by the primary reply. System messages are not stored.
type HistoryListener struct {
	Store history.Store
}

func NewHistoryListener(store history.Store) *HistoryListener {
	return &HistoryListener{Store: store}
}

func (l *HistoryListener) OnComplete(ctx context.Context, req *chat.Request, res *chat.GenerationResult) error {
	primary, ok := res.Primary()
	if !ok {
		klog.FromContext(ctx).V(logging.DEBUG).Info("No generation to persist")
		return nil
	}
	msgs := append(chat.WithoutRole(req.Messages, chat.RoleSystem), primary.Message.Clone())
	return l.Store.Append(ctx, chat.Exchange{ConversationID: req.ConversationID, Messages: msgs})
}
