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

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

func noopTool(name string) tools.Callback {
	return tools.NewFunc(name, "", "", func(context.Context, struct{}) (string, error) { return name, nil })
}

func TestRetrievalResultMerge(t *testing.T) {
	a := RetrievalResult{
		Documents: []Document{{ID: "a1"}, {ID: "a2"}},
		Exchanges: []Exchange{{ConversationID: "c", Messages: []Message{UserMessage("a")}}},
	}
	b := RetrievalResult{
		Documents: []Document{{ID: "b1"}},
		Exchanges: []Exchange{{ConversationID: "c", Messages: []Message{UserMessage("b")}}},
	}

	t.Run("order preserving", func(t *testing.T) {
		m := a.Merge(b)
		ids := []string{}
		for _, d := range m.Documents {
			ids = append(ids, d.ID)
		}
		assert.Equal(t, []string{"a1", "a2", "b1"}, ids)
		assert.Equal(t, "a", m.Exchanges[0].Messages[0].Content)
		assert.Equal(t, "b", m.Exchanges[1].Messages[0].Content)
	})

	t.Run("associative", func(t *testing.T) {
		c := RetrievalResult{Documents: []Document{{ID: "c1"}}}
		assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
	})

	t.Run("empty is identity", func(t *testing.T) {
		var empty RetrievalResult
		assert.Equal(t, a, empty.Merge(a))
		assert.Equal(t, a, a.Merge(empty))
		assert.True(t, empty.Merge(empty).IsEmpty())
	})

	t.Run("operands untouched", func(t *testing.T) {
		_ = a.Merge(b)
		assert.Len(t, a.Documents, 2)
		assert.Len(t, b.Documents, 1)
	})
}

func TestOverlay(t *testing.T) {
	base := &ModelOptions{
		Model:       String("base-model"),
		Temperature: Float(0.7),
		MaxTokens:   Int(100),
		Functions:   []string{"a"},
	}
	override := &ModelOptions{
		Temperature: Float(0.1),
		Stop:        []string{"END"},
		Functions:   []string{"a", "b"},
	}

	out := Overlay(base, override)
	require.NotNil(t, out)
	assert.Equal(t, "base-model", *out.Model)
	assert.Equal(t, 0.1, *out.Temperature)
	assert.Equal(t, 100, *out.MaxTokens)
	assert.Nil(t, out.TopP)
	assert.Equal(t, []string{"END"}, out.Stop)
	assert.Equal(t, []string{"a", "b"}, out.Functions)

	assert.Equal(t, 0.7, *base.Temperature, "base must not change")
	assert.Nil(t, Overlay(nil, nil))
	assert.Equal(t, "base-model", *Overlay(base, nil).Model)
	assert.Equal(t, 0.1, *Overlay(nil, override).Temperature)
}

func TestRequestPrompt(t *testing.T) {
	t.Run("copies messages", func(t *testing.T) {
		req := &Request{Messages: []Message{UserMessage("hi")}}
		p := req.Prompt()
		p.Messages[0].Content = "changed"
		assert.Equal(t, "hi", req.Messages[0].Content)
		assert.Nil(t, p.Options)
	})

	t.Run("merges functions into function calling options", func(t *testing.T) {
		opts := &ModelOptions{Model: String("m"), Functions: []string{"a"}, Callbacks: []tools.Callback{noopTool("x")}}
		req := &Request{
			Messages:  []Message{UserMessage("hi")},
			Options:   opts,
			Functions: []string{"a", "b"},
			Callbacks: []tools.Callback{noopTool("x"), noopTool("y")},
		}
		p := req.Prompt()
		assert.Equal(t, []string{"a", "b"}, p.FunctionNames())
		require.Len(t, p.FunctionCallbacks(), 2)
		assert.Equal(t, "y", p.FunctionCallbacks()[1].Name())
		assert.Equal(t, []string{"a"}, opts.Functions, "request options must not change")
	})

	t.Run("synthesizes options for functions", func(t *testing.T) {
		req := &Request{Messages: []Message{UserMessage("hi")}, Functions: []string{"a"}}
		assert.Equal(t, []string{"a"}, req.Prompt().FunctionNames())
	})

	t.Run("keeps opaque options", func(t *testing.T) {
		req := &Request{Messages: []Message{UserMessage("hi")}, Options: opaque{v: 3}, Functions: []string{"a"}}
		p := req.Prompt()
		assert.Equal(t, opaque{v: 3}, p.Options)
		assert.Nil(t, p.FunctionNames())
	})
}

type opaque struct{ v int }

func (o opaque) Copy() Options { return o }

func TestPrimary(t *testing.T) {
	var nilResult *GenerationResult
	_, ok := nilResult.Primary()
	assert.False(t, ok)

	res := &GenerationResult{Generations: []Generation{
		{Message: AssistantMessage("first")},
		{Message: AssistantMessage("second")},
	}}
	g, ok := res.Primary()
	assert.True(t, ok)
	assert.Equal(t, "first", g.Message.Content)
}

func TestMessageHelpers(t *testing.T) {
	msgs := []Message{SystemMessage("s"), UserMessage("u"), AssistantMessage("a", ToolCall{ID: "1"})}
	assert.Len(t, FilterRole(msgs, RoleSystem), 1)
	assert.Len(t, WithoutRole(msgs, RoleSystem), 2)

	clone := CloneMessages(msgs)
	clone[2].ToolCalls[0].ID = "2"
	assert.Equal(t, "1", msgs[2].ToolCalls[0].ID)
	assert.True(t, msgs[2].HasToolCalls())

	tm := ToolMessage("call-1", "getCurrentWeather", "30.0f")
	assert.Equal(t, RoleTool, tm.Role)
	assert.Equal(t, "call-1", tm.ToolCallID)
}
