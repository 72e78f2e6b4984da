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

// The file provides HTTP handlers for the chat and conversation endpoints.
package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/common"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/middleware"
	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/engine"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

const (
	ChatPath         = "/v1/chat"
	ConversationPath = "/v1/conversations/{conversation_id}"
)

type ChatRequest struct {
	ConversationID string             `json:"conversation_id,omitempty"`
	Messages       []chat.Message     `json:"messages"`
	Options        *chat.ModelOptions `json:"options,omitempty"`
	Functions      []string           `json:"functions,omitempty"`
}

type ChatResponse struct {
	ConversationID string            `json:"conversation_id"`
	Message        *chat.Message     `json:"message,omitempty"`
	FinishReason   chat.FinishReason `json:"finish_reason,omitempty"`
	Usage          chat.Usage        `json:"usage"`
}

type ConversationResponse struct {
	ConversationID string          `json:"conversation_id"`
	Exchanges      []chat.Exchange `json:"exchanges"`
}

type ChatApiHandler struct {
	engine   *engine.Engine
	store    history.Store
	registry *tools.Registry
	limiter  *middleware.TurnLimiter
}

// NewChatApiHandler serves turns through eng. A nil limiter leaves concurrency unbounded.
func NewChatApiHandler(eng *engine.Engine, store history.Store, registry *tools.Registry,
	limiter *middleware.TurnLimiter) *ChatApiHandler {
	return &ChatApiHandler{engine: eng, store: store, registry: registry, limiter: limiter}
}

func (c *ChatApiHandler) GetRoutes() []common.Route {
	return []common.Route{
		{
			Method:      http.MethodPost,
			Pattern:     ChatPath,
			HandlerFunc: c.limiter.Limit(c.Chat),
		},
		{
			Method:      http.MethodGet,
			Pattern:     ConversationPath,
			HandlerFunc: c.GetConversation,
		},
		{
			Method:      http.MethodDelete,
			Pattern:     ConversationPath,
			HandlerFunc: c.DeleteConversation,
		},
	}
}

func (c *ChatApiHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.WriteError(ctx, w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req := &chat.Request{
		ConversationID: body.ConversationID,
		Messages:       body.Messages,
		Functions:      body.Functions,
	}
	if body.Options != nil {
		req.Options = body.Options
	}
	for _, name := range body.Functions {
		if _, ok := c.registry.Lookup(name); !ok {
			common.WriteError(ctx, w, http.StatusBadRequest, "unknown function: "+name)
			return
		}
	}

	res, err := c.engine.Run(ctx, req)
	if err != nil {
		common.WriteError(ctx, w, statusOf(err), err.Error())
		return
	}
	out := ChatResponse{ConversationID: res.Request.ConversationID, Usage: res.Generation.Usage}
	if g, ok := res.Generation.Primary(); ok {
		msg := g.Message
		out.Message = &msg
		out.FinishReason = g.FinishReason
	}
	common.WriteJSON(ctx, w, http.StatusOK, out)
}

func (c *ChatApiHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("conversation_id")
	exchanges, err := c.store.Get(ctx, id)
	if err != nil {
		klog.FromContext(ctx).Error(err, "GetConversation:", "conversationId", id)
		common.WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(exchanges) == 0 {
		common.WriteError(ctx, w, http.StatusNotFound, "conversation not found: "+id)
		return
	}
	common.WriteJSON(ctx, w, http.StatusOK, ConversationResponse{ConversationID: id, Exchanges: exchanges})
}

func (c *ChatApiHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("conversation_id")
	if err := c.store.Clear(ctx, id); err != nil {
		klog.FromContext(ctx).Error(err, "DeleteConversation:", "conversationId", id)
		common.WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusOf(err error) int {
	var retryable interface{ IsRetryable() bool }
	switch {
	case errors.Is(err, engine.ErrNilRequest), errors.Is(err, engine.ErrNoMessages), errors.Is(err, engine.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, generate.ErrUnknownTool), errors.Is(err, generate.ErrToolFailed),
		errors.Is(err, generate.ErrToolLoopOverrun), errors.Is(err, tools.ErrMalformedArguments):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &retryable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
