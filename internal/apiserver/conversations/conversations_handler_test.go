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

package conversations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/common"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/middleware"
	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/engine"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

func newTestMux(t *testing.T, gen generate.Generator) (*http.ServeMux, history.Store) {
	t.Helper()
	store := history.NewMemoryStore()
	echo := tools.NewFunc("echo", "Echo the input", `{"type":"object"}`,
		func(_ context.Context, in map[string]string) (string, error) { return in["text"], nil })
	registry, err := tools.NewRegistry(echo)
	require.NoError(t, err)

	eng := engine.New(gen,
		engine.WithIDGenerator(func() string { return "generated-id" }),
		engine.WithListener(engine.NewHistoryListener(store)))
	mux := http.NewServeMux()
	common.RegisterHandler(mux, NewChatApiHandler(eng, store, registry, middleware.NewTurnLimiter(4)))
	return mux, store
}

func replyWith(text string) generate.Generator {
	return generate.GeneratorFunc(func(context.Context, chat.Prompt) (*chat.GenerationResult, error) {
		return &chat.GenerationResult{
			Generations: []chat.Generation{{Message: chat.AssistantMessage(text), FinishReason: chat.FinishStop}},
			Usage:       chat.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
		}, nil
	})
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestChatHandler(t *testing.T) {
	t.Run("runs a turn and persists it", func(t *testing.T) {
		mux, store := newTestMux(t, replyWith("Hello Bob"))
		w := do(mux, http.MethodPost, ChatPath, `{"messages":[{"role":"user","content":"Hi, I am Bob"}]}`)
		require.Equal(t, http.StatusOK, w.Code)

		var res ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "generated-id", res.ConversationID)
		require.NotNil(t, res.Message)
		assert.Equal(t, "Hello Bob", res.Message.Content)
		assert.Equal(t, chat.FinishStop, res.FinishReason)
		assert.Equal(t, 4, res.Usage.TotalTokens)

		stored, err := store.Get(context.Background(), "generated-id")
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("passes options and functions through", func(t *testing.T) {
		var seen chat.Prompt
		gen := generate.GeneratorFunc(func(_ context.Context, p chat.Prompt) (*chat.GenerationResult, error) {
			seen = p
			return &chat.GenerationResult{}, nil
		})
		mux, _ := newTestMux(t, gen)
		w := do(mux, http.MethodPost, ChatPath,
			`{"conversation_id":"c","messages":[{"role":"user","content":"q"}],"options":{"model":"granite"},"functions":["echo"]}`)
		require.Equal(t, http.StatusOK, w.Code)
		opts, ok := seen.Options.(*chat.ModelOptions)
		require.True(t, ok)
		assert.Equal(t, "granite", *opts.Model)
		assert.Equal(t, []string{"echo"}, opts.Functions)
		assert.NotContains(t, w.Body.String(), `"message"`)
	})

	tests := []struct {
		name       string
		body       string
		gen        generate.Generator
		wantStatus int
		wantType   string
	}{
		{"malformed body", `{`, replyWith("x"), http.StatusBadRequest, "invalid_request_error"},
		{"no messages", `{"messages":[]}`, replyWith("x"), http.StatusBadRequest, "invalid_request_error"},
		{"unknown function", `{"messages":[{"role":"user","content":"q"}],"functions":["nope"]}`, replyWith("x"), http.StatusBadRequest, "invalid_request_error"},
		{
			name: "tool failure",
			body: `{"messages":[{"role":"user","content":"q"}]}`,
			gen: generate.GeneratorFunc(func(context.Context, chat.Prompt) (*chat.GenerationResult, error) {
				return nil, generate.ErrToolLoopOverrun
			}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   "tool_error",
		},
		{
			name: "backend failure",
			body: `{"messages":[{"role":"user","content":"q"}]}`,
			gen: generate.GeneratorFunc(func(context.Context, chat.Prompt) (*chat.GenerationResult, error) {
				return nil, context.DeadlineExceeded
			}),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "server_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newTestMux(t, tt.gen)
			w := do(mux, http.MethodPost, ChatPath, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			var res common.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.wantType, res.Error.Type)
			assert.NotEmpty(t, res.Error.Message)
		})
	}
}

func TestConversationHandlers(t *testing.T) {
	mux, _ := newTestMux(t, replyWith("ok"))
	require.Equal(t, http.StatusOK, do(mux, http.MethodPost, ChatPath,
		`{"conversation_id":"c1","messages":[{"role":"user","content":"hi"}]}`).Code)

	w := do(mux, http.MethodGet, "/v1/conversations/c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "c1", conv.ConversationID)
	require.Len(t, conv.Exchanges, 1)
	assert.Equal(t, []chat.Message{chat.UserMessage("hi"), chat.AssistantMessage("ok")}, conv.Exchanges[0].Messages)

	assert.Equal(t, http.StatusNoContent, do(mux, http.MethodDelete, "/v1/conversations/c1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/v1/conversations/c1", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodPut, "/v1/conversations/c1", "").Code)
}
