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

// Package augment rewrites the outgoing prompt with retrieved context.
package augment

import (
	"context"
	"fmt"
	"strings"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

// Augmentor rewrites current, the prompt produced by the previous augmentor.
// req is the original turn and rr the retrieval snapshot shared by the whole chain.
type Augmentor interface {
	Augment(ctx context.Context, current chat.Prompt, req *chat.Request, rr chat.RetrievalResult) (chat.Prompt, error)
}

type Func func(ctx context.Context, current chat.Prompt, req *chat.Request, rr chat.RetrievalResult) (chat.Prompt, error)

func (f Func) Augment(ctx context.Context, current chat.Prompt, req *chat.Request, rr chat.RetrievalResult) (chat.Prompt, error) {
	return f(ctx, current, req, rr)
}

// Chain applies the augmentors in order starting from the request's own prompt.
func Chain(ctx context.Context, req *chat.Request, rr chat.RetrievalResult, augmentors []Augmentor) (chat.Prompt, error) {
	prompt := req.Prompt()
	for i, a := range augmentors {
		next, err := a.Augment(ctx, prompt, req, rr)
		if err != nil {
			return chat.Prompt{}, fmt.Errorf("augmentor %d: %w", i, err)
		}
		prompt = next
	}
	return prompt, nil
}

func joinContents(msgs []chat.Message, sep string) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, sep)
}
