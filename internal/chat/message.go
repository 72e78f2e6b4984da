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

// Package chat holds the conversation data model shared by every pipeline stage.
package chat

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a backend request to invoke a named function.
type ToolCall struct {
	ID        string `json:"id" cbor:"id"`
	Name      string `json:"name" cbor:"name"`
	Arguments string `json:"arguments" cbor:"arguments"`
}

// Message is a role tagged unit of conversation content.
// Messages are treated as values: stages that rewrite a conversation build new slices.
type Message struct {
	Role       Role       `json:"role" cbor:"role"`
	Content    string     `json:"content" cbor:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" cbor:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" cbor:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty" cbor:"name,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage answers the tool call identified by callID.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}

// CloneMessages deep copies a message list.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// FilterRole returns the messages with the given role, in order.
func FilterRole(msgs []Message, role Role) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// WithoutRole returns the messages whose role differs from role, in order.
func WithoutRole(msgs []Message, role Role) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Role != role {
			out = append(out, m)
		}
	}
	return out
}
