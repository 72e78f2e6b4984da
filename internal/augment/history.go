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

package augment

import (
	"context"
	"strings"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

const HistoryPrompt = "Use the conversation history from the HISTORY section to provide accurate answers.\n\nHISTORY:\n"

// HistoryAugmentor appends the retrieved exchanges to the system message as ROLE: content lines.
// The output always leads with a system message, synthesised empty when the prompt has none.
type HistoryAugmentor struct{}

var _ Augmentor = HistoryAugmentor{}

func NewHistoryAugmentor() HistoryAugmentor {
	return HistoryAugmentor{}
}

func (HistoryAugmentor) Augment(_ context.Context, current chat.Prompt, _ *chat.Request, rr chat.RetrievalResult) (chat.Prompt, error) {
	var lines []string
	for _, ex := range rr.Exchanges {
		for _, m := range ex.Messages {
			lines = append(lines, strings.ToUpper(string(m.Role))+": "+m.Content)
		}
	}
	block := HistoryPrompt + strings.Join(lines, "\n")

	// Only the first system message is carried over.
	systems := chat.FilterRole(current.Messages, chat.RoleSystem)
	system := chat.SystemMessage("")
	if len(systems) > 0 {
		system = systems[0]
	}
	system.Content = system.Content + "\n" + block

	msgs := make([]chat.Message, 0, len(current.Messages)+1)
	msgs = append(msgs, system)
	msgs = append(msgs, chat.WithoutRole(current.Messages, chat.RoleSystem)...)
	return current.WithMessages(msgs), nil
}
