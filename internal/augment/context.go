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
	"fmt"
	"strings"
	"text/template"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

// DefaultContextTemplate renders .Context and .Question.
const DefaultContextTemplate = "Context information is below.\n" +
	"---------------------\n" +
	"{{.Context}}\n" +
	"---------------------\n" +
	"Given the context information and not prior knowledge, answer the question. " +
	"If the answer is not in the context, inform the user that you can't answer the question.\n" +
	"Question: {{.Question}}\n" +
	"Answer: "

type contextData struct {
	Context  string
	Question string
}

// ContextAugmentor replaces the non-system messages with one user message that embeds
// the retrieved documents and restates the question.
type ContextAugmentor struct {
	tmpl *template.Template
}

var _ Augmentor = (*ContextAugmentor)(nil)

// NewContextAugmentor parses text, or DefaultContextTemplate when text is empty.
func NewContextAugmentor(text string) (*ContextAugmentor, error) {
	if text == "" {
		text = DefaultContextTemplate
	}
	tmpl, err := template.New("context").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse context template: %w", err)
	}
	return &ContextAugmentor{tmpl: tmpl}, nil
}

func (a *ContextAugmentor) Augment(_ context.Context, current chat.Prompt, _ *chat.Request, rr chat.RetrievalResult) (chat.Prompt, error) {
	docs := make([]string, len(rr.Documents))
	for i, d := range rr.Documents {
		docs[i] = d.Content
	}
	data := contextData{
		Context:  strings.Join(docs, "\n"),
		Question: joinContents(chat.FilterRole(current.Messages, chat.RoleUser), "\n"),
	}
	var sb strings.Builder
	if err := a.tmpl.Execute(&sb, data); err != nil {
		return chat.Prompt{}, fmt.Errorf("render context template: %w", err)
	}
	msgs := chat.FilterRole(current.Messages, chat.RoleSystem)
	msgs = append(msgs, chat.UserMessage(sb.String()))
	return current.WithMessages(msgs), nil
}
