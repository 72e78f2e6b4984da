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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d-incubation/chat-engine/internal/augment"
	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/generate"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/retrieval"
	"github.com/llm-d-incubation/chat-engine/internal/tokens"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

func reply(text string) *chat.GenerationResult {
	return &chat.GenerationResult{Generations: []chat.Generation{{Message: chat.AssistantMessage(text), FinishReason: chat.FinishStop}}}
}

// recorder is a generator that answers with a fixed text and keeps the prompts it saw.
type recorder struct {
	mu      sync.Mutex
	text    string
	prompts []chat.Prompt
}

func (r *recorder) Generate(_ context.Context, p chat.Prompt) (*chat.GenerationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
	return reply(r.text), nil
}

func (r *recorder) last() chat.Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prompts[len(r.prompts)-1]
}

type countingListener struct {
	calls atomic.Int32
	err   error
}

func (l *countingListener) OnComplete(context.Context, *chat.Request, *chat.GenerationResult) error {
	l.calls.Add(1)
	return l.err
}

func userTurn(conversationID, text string) *chat.Request {
	return &chat.Request{ConversationID: conversationID, Messages: []chat.Message{chat.UserMessage(text)}}
}

func TestRunValidation(t *testing.T) {
	listener := &countingListener{}
	e := New(&recorder{text: "x"}, WithListener(listener))

	_, err := e.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilRequest)
	_, err = e.Run(context.Background(), &chat.Request{ConversationID: "c"})
	assert.ErrorIs(t, err, ErrNoMessages)
	assert.Zero(t, listener.calls.Load())
}

func TestRunPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("no retrievers yields an empty retrieval result", func(t *testing.T) {
		gen := &recorder{text: "hello"}
		listener := &countingListener{}
		e := New(gen, WithListener(listener), WithIDGenerator(func() string { return "conv-1" }))

		in := userTurn("", "hi")
		res, err := e.Run(ctx, in)
		require.NoError(t, err)
		assert.True(t, res.Retrieval.IsEmpty())
		assert.Equal(t, "conv-1", res.Request.ConversationID)
		assert.Empty(t, in.ConversationID)
		assert.Equal(t, []chat.Message{chat.UserMessage("hi")}, res.Prompt.Messages)
		g, _ := res.Generation.Primary()
		assert.Equal(t, "hello", g.Message.Content)
		assert.EqualValues(t, 1, listener.calls.Load())
	})

	t.Run("system prompt is added only when absent", func(t *testing.T) {
		gen := &recorder{text: "ok"}
		e := New(gen, WithSystemPrompt("You are helpful."))

		_, err := e.Run(ctx, userTurn("c", "q"))
		require.NoError(t, err)
		assert.Equal(t, chat.SystemMessage("You are helpful."), gen.last().Messages[0])

		own := &chat.Request{ConversationID: "c", Messages: []chat.Message{chat.SystemMessage("mine"), chat.UserMessage("q")}}
		_, err = e.Run(ctx, own)
		require.NoError(t, err)
		assert.Len(t, gen.last().Messages, 2)
		assert.Equal(t, "mine", gen.last().Messages[0].Content)
	})

	t.Run("retrievers merge in registration order and feed the augmentors", func(t *testing.T) {
		doc := func(id string) retrieval.Retriever {
			return retrieval.Func(func(context.Context, *retrieval.Request) (chat.RetrievalResult, error) {
				return chat.RetrievalResult{Documents: []chat.Document{{ID: id}}}, nil
			})
		}
		var seen []string
		probe := augment.Func(func(_ context.Context, cur chat.Prompt, _ *chat.Request, rr chat.RetrievalResult) (chat.Prompt, error) {
			for _, d := range rr.Documents {
				seen = append(seen, d.ID)
			}
			return cur, nil
		})
		e := New(&recorder{text: "ok"}, WithRetrievers(doc("a"), doc("b")), WithAugmentors(probe))
		res, err := e.Run(ctx, userTurn("c", "q"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, seen)
		assert.Len(t, res.Retrieval.Documents, 2)
	})

	t.Run("augmentation may not empty the prompt", func(t *testing.T) {
		wipe := augment.Func(func(context.Context, chat.Prompt, *chat.Request, chat.RetrievalResult) (chat.Prompt, error) {
			return chat.Prompt{}, nil
		})
		listener := &countingListener{}
		_, err := New(&recorder{text: "ok"}, WithAugmentors(wipe), WithListener(listener)).Run(ctx, userTurn("c", "q"))
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Zero(t, listener.calls.Load())
	})
}

func TestRunFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name string
		opts []Option
		gen  generate.Generator
	}{
		{
			name: "retriever failure",
			opts: []Option{WithRetrievers(retrieval.Func(func(context.Context, *retrieval.Request) (chat.RetrievalResult, error) {
				return chat.RetrievalResult{}, boom
			}))},
			gen: &recorder{text: "x"},
		},
		{
			name: "augmentor failure",
			opts: []Option{WithAugmentors(augment.Func(func(context.Context, chat.Prompt, *chat.Request, chat.RetrievalResult) (chat.Prompt, error) {
				return chat.Prompt{}, boom
			}))},
			gen: &recorder{text: "x"},
		},
		{
			name: "generator failure",
			gen: generate.GeneratorFunc(func(context.Context, chat.Prompt) (*chat.GenerationResult, error) {
				return nil, boom
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := history.NewMemoryStore()
			listener := &countingListener{}
			opts := append([]Option{WithListener(ListenerFunc(func(ctx context.Context, req *chat.Request, res *chat.GenerationResult) error {
				listener.calls.Add(1)
				return NewHistoryListener(store).OnComplete(ctx, req, res)
			}))}, tt.opts...)

			res, err := New(tt.gen, opts...).Run(ctx, userTurn("c", "q"))
			assert.ErrorIs(t, err, boom)
			assert.Nil(t, res)
			assert.Zero(t, listener.calls.Load())
			stored, err := store.Get(ctx, "c")
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}

	t.Run("listener failure fails the run", func(t *testing.T) {
		listener := &countingListener{err: boom}
		_, err := New(&recorder{text: "x"}, WithListener(listener)).Run(ctx, userTurn("c", "q"))
		assert.ErrorIs(t, err, boom)
		assert.EqualValues(t, 1, listener.calls.Load())
	})

	t.Run("cancellation during generation skips the listener", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		gen := generate.GeneratorFunc(func(context.Context, chat.Prompt) (*chat.GenerationResult, error) {
			cancel()
			return reply("late"), nil
		})
		listener := &countingListener{}
		_, err := New(gen, WithListener(listener)).Run(cctx, userTurn("c", "q"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, listener.calls.Load())
	})

	t.Run("tool loop overrun is surfaced", func(t *testing.T) {
		looping := generate.GeneratorFunc(func(context.Context, chat.Prompt) (*chat.GenerationResult, error) {
			return &chat.GenerationResult{Generations: []chat.Generation{{
				Message: chat.AssistantMessage("", chat.ToolCall{ID: "1", Name: "noop"}),
			}}}, nil
		})
		noop := tools.NewFunc("noop", "", "", func(context.Context, struct{}) (string, error) { return "", nil })
		registry, err := tools.NewRegistry(noop)
		require.NoError(t, err)
		_, err = New(generate.NewToolCallingGenerator(looping, registry, 2)).Run(ctx, userTurn("c", "q"))
		assert.ErrorIs(t, err, generate.ErrToolLoopOverrun)
		assert.Equal(t, "tool_overrun", reasonOf(err, ""))
	})
}

func TestHistoryListener(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	l := NewHistoryListener(store)

	req := &chat.Request{ConversationID: "c", Messages: []chat.Message{chat.SystemMessage("sys"), chat.UserMessage("q")}}
	require.NoError(t, l.OnComplete(ctx, req, reply("a")))
	require.NoError(t, l.OnComplete(ctx, req, &chat.GenerationResult{}))

	stored, err := store.Get(ctx, "c")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []chat.Message{chat.UserMessage("q"), chat.AssistantMessage("a")}, stored[0].Messages)
}

func newConversationalEngine(t *testing.T, store history.Store, gen generate.Generator) *Engine {
	window, err := retrieval.NewTokenWindowRetriever(store, tokens.NewCharEstimator(tokens.DefaultCharactersPerToken), 1000)
	require.NoError(t, err)
	return New(gen,
		WithSystemPrompt("You are helpful."),
		WithRetrievers(window),
		WithAugmentors(augment.NewHistoryAugmentor()),
		WithListener(NewHistoryListener(store)),
	)
}

func TestConversationMemory(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	gen := &recorder{text: "Hello Bob"}
	e := newConversationalEngine(t, store, gen)

	_, err := e.Run(ctx, userTurn("bob", "Hi, I am Bob"))
	require.NoError(t, err)
	gen.text = "Your name is Bob."
	res, err := e.Run(ctx, userTurn("bob", "What is my name?"))
	require.NoError(t, err)

	require.Len(t, res.Retrieval.Exchanges, 1)
	sys := gen.last().Messages[0]
	assert.Equal(t, chat.RoleSystem, sys.Role)
	assert.Equal(t, "You are helpful.\n"+augment.HistoryPrompt+"USER: Hi, I am Bob\nASSISTANT: Hello Bob", sys.Content)
	assert.Equal(t, chat.UserMessage("What is my name?"), gen.last().Messages[1])

	stored, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	other, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestToolCallingTurn(t *testing.T) {
	ctx := context.Background()
	type weatherRequest struct {
		Location string `json:"location"`
	}
	weather := tools.NewFunc("getCurrentWeather", "Get the weather in location", `{"type":"object"}`,
		func(_ context.Context, in weatherRequest) (string, error) {
			if in.Location == "San Francisco" {
				return "30.0f", nil
			}
			return "", fmt.Errorf("unknown location %s", in.Location)
		})
	registry, err := tools.NewRegistry(weather)
	require.NoError(t, err)

	calls := 0
	backend := generate.BackendFunc(func(_ context.Context, p chat.Prompt) (*chat.GenerationResult, error) {
		calls++
		last := p.Messages[len(p.Messages)-1]
		if last.Role == chat.RoleTool {
			return reply("It is " + last.Content + " in San Francisco."), nil
		}
		return &chat.GenerationResult{Generations: []chat.Generation{{
			Message: chat.AssistantMessage("", chat.ToolCall{ID: "call_7", Name: "getCurrentWeather", Arguments: `{"location":"San Francisco"}`}),
		}}}, nil
	})

	store := history.NewMemoryStore()
	gen := generate.NewToolCallingGenerator(generate.NewBackendGenerator(backend), registry, 0)
	e := newConversationalEngine(t, store, gen)

	req := userTurn("w", "What's the weather like in San Francisco?")
	req.Functions = []string{"getCurrentWeather"}
	res, err := e.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	g, _ := res.Generation.Primary()
	assert.Contains(t, g.Message.Content, "30.0f")

	stored, err := store.Get(ctx, "w")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].Messages, 2)
}

func TestConcurrentConversations(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	e := newConversationalEngine(t, store, &recorder{text: "ok"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", i%4)
			_, err := e.Run(ctx, userTurn(id, fmt.Sprintf("message %d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		stored, err := store.Get(ctx, fmt.Sprintf("conv-%d", i))
		require.NoError(t, err)
		assert.Len(t, stored, 4)
		for _, ex := range stored {
			assert.Len(t, ex.Messages, 2)
		}
	}
}
