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

// Document is a retrieved context item.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

// Exchange is one persisted round trip: the messages sent plus the assistant reply.
type Exchange struct {
	ConversationID string    `json:"conversation_id" cbor:"conversation_id"`
	Messages       []Message `json:"messages" cbor:"messages"`
}

func (e Exchange) Clone() Exchange {
	e.Messages = CloneMessages(e.Messages)
	return e
}

// RetrievalResult is the merged output of all retrievers for a turn.
// The zero value is the identity of Merge.
type RetrievalResult struct {
	Documents []Document
	Exchanges []Exchange
}

// Merge concatenates other after r. Neither operand is modified.
func (r RetrievalResult) Merge(other RetrievalResult) RetrievalResult {
	var out RetrievalResult
	if n := len(r.Documents) + len(other.Documents); n > 0 {
		out.Documents = make([]Document, 0, n)
		out.Documents = append(append(out.Documents, r.Documents...), other.Documents...)
	}
	if n := len(r.Exchanges) + len(other.Exchanges); n > 0 {
		out.Exchanges = make([]Exchange, 0, n)
		out.Exchanges = append(append(out.Exchanges, r.Exchanges...), other.Exchanges...)
	}
	return out
}

func (r RetrievalResult) IsEmpty() bool {
	return len(r.Documents) == 0 && len(r.Exchanges) == 0
}

type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
)

// Generation is one candidate output of the backend.
type Generation struct {
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates u2 into u.
func (u Usage) Add(u2 Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + u2.PromptTokens,
		CompletionTokens: u.CompletionTokens + u2.CompletionTokens,
		TotalTokens:      u.TotalTokens + u2.TotalTokens,
	}
}

type GenerationResult struct {
	Generations []Generation `json:"generations"`
	Usage       Usage        `json:"usage"`
}

// Primary returns the first candidate.
func (g *GenerationResult) Primary() (Generation, bool) {
	if g == nil || len(g.Generations) == 0 {
		return Generation{}, false
	}
	return g.Generations[0], true
}
