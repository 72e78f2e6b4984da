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

// Package engine runs one conversational turn through retrieval, augmentation and generation.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/llm-d-incubation/chat-engine/internal/augment"
	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/retrieval"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

var (
	ErrNilRequest  = errors.New("nil request")
	ErrNoMessages  = errors.New("request has no messages")
	ErrEmptyPrompt = errors.New("augmentation produced an empty prompt")
)

// Response is everything one turn produced.
type Response struct {
	Request    *chat.Request
	Retrieval  chat.RetrievalResult
	Prompt     chat.Prompt
	Generation *chat.GenerationResult
}

// Engine holds no per-conversation state; Run may be called concurrently
// when the configured stages allow it.
type Engine struct {
	generator    generate.Generator
	retrievers   []retrieval.Retriever
	augmentors   []augment.Augmentor
	listener     Listener
	newID        func() string
	systemPrompt string
}

type Option func(*Engine)

// WithRetrievers appends retrievers; their results merge in this order.
func WithRetrievers(retrievers ...retrieval.Retriever) Option {
	return func(e *Engine) {
		e.retrievers = append(e.retrievers, retrievers...)
	}
}

// WithAugmentors appends augmentors; each sees the output of the previous one.
func WithAugmentors(augmentors ...augment.Augmentor) Option {
	return func(e *Engine) {
		e.augmentors = append(e.augmentors, augmentors...)
	}
}

func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.listener = l
	}
}

// WithIDGenerator sets how conversation ids are minted for requests that carry none.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// WithSystemPrompt is prepended to requests without a system message.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		e.systemPrompt = prompt
	}
}

// New returns an engine that generates with generator; options add the other stages.
func New(generator generate.Generator, opts ...Option) *Engine {
	e := &Engine{generator: generator, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one turn. The listener is called exactly once when every stage succeeds
// and never otherwise. The caller's request is not modified.
func (e *Engine) Run(ctx context.Context, req *chat.Request) (*Response, error) {
	start := time.Now()
	res, reason, err := e.run(ctx, req)
	switch {
	case err != nil:
		metrics.RecordRun(metrics.ResultFailed, reason, time.Since(start))
	case len(res.Generation.Generations) == 0:
		metrics.RecordRun(metrics.ResultEmpty, metrics.ReasonNone, time.Since(start))
	default:
		metrics.RecordRun(metrics.ResultSuccess, metrics.ReasonNone, time.Since(start))
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, in *chat.Request) (*Response, string, error) {
	if in == nil {
		return nil, metrics.ReasonUserError, ErrNilRequest
	}
	if len(in.Messages) == 0 {
		return nil, metrics.ReasonUserError, ErrNoMessages
	}
	req := e.prepare(in)
	ctx, logger := logging.WithConversation(ctx, req.ConversationID)

	rr, err := retrieval.Fold(ctx, retrieval.NewRequest(req), e.retrievers)
	if err != nil {
		logger.Error(err, "Retrieval:")
		return nil, reasonOf(err, metrics.ReasonStoreError), err
	}
	logger.V(logging.DEBUG).Info("Retrieved", "documents", len(rr.Documents), "exchanges", len(rr.Exchanges))

	prompt, err := augment.Chain(ctx, req, rr, e.augmentors)
	if err != nil {
		logger.Error(err, "Augmentation:")
		return nil, reasonOf(err, metrics.ReasonUnknown), err
	}
	if len(prompt.Messages) == 0 {
		logger.Error(ErrEmptyPrompt, "Augmentation:")
		return nil, metrics.ReasonUserError, ErrEmptyPrompt
	}
	logger.V(logging.DEBUG).Info("Augmented", "messages", len(prompt.Messages))

	gen, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error(err, "Generation:")
		return nil, reasonOf(err, metrics.ReasonBackendError), err
	}
	if gen == nil {
		gen = &chat.GenerationResult{}
	}
	// A late cancellation still discards the turn so nothing half-finished is persisted.
	if err := ctx.Err(); err != nil {
		return nil, metrics.ReasonCancelled, err
	}
	logger.V(logging.DEBUG).Info("Generated", "generations", len(gen.Generations), "totalTokens", gen.Usage.TotalTokens)

	if e.listener != nil {
		if err := e.listener.OnComplete(ctx, req, gen); err != nil {
			logger.Error(err, "Completion listener:")
			return nil, reasonOf(err, metrics.ReasonStoreError), err
		}
	}
	return &Response{Request: req, Retrieval: rr, Prompt: prompt, Generation: gen}, "", nil
}

// prepare copies the request, assigns a conversation id and adds the system prompt.
func (e *Engine) prepare(in *chat.Request) *chat.Request {
	req := *in
	req.Messages = chat.CloneMessages(in.Messages)
	req.Functions = append([]string(nil), in.Functions...)
	req.Callbacks = append([]tools.Callback(nil), in.Callbacks...)
	if in.Options != nil {
		req.Options = in.Options.Copy()
	}
	if req.ConversationID == "" {
		req.ConversationID = e.newID()
	}
	if e.systemPrompt != "" && len(chat.FilterRole(req.Messages, chat.RoleSystem)) == 0 {
		req.Messages = append([]chat.Message{chat.SystemMessage(e.systemPrompt)}, req.Messages...)
	}
	return &req
}

func reasonOf(err error, fallback string) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ReasonCancelled
	case errors.Is(err, generate.ErrToolLoopOverrun):
		return metrics.ReasonToolOverrun
	case errors.Is(err, generate.ErrUnknownTool), errors.Is(err, generate.ErrToolFailed):
		return metrics.ReasonToolError
	case errors.Is(err, tools.ErrMalformedArguments):
		return metrics.ReasonToolError
	}
	return fallback
}
