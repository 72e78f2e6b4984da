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

package generate

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

const DefaultMaxIterations = 10

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrToolLoopOverrun = errors.New("tool call loop exceeded its iteration limit")
	ErrToolFailed      = errors.New("tool call failed")
)

// ToolCallingGenerator answers the backend's tool calls until it produces a plain reply.
//
// Each round appends the assistant message carrying the calls, then one tool message per
// call in list order, and generates again with the same options and tool definitions.
// Only the primary candidate's calls are honoured. At most maxIterations generations
// run per turn.
type ToolCallingGenerator struct {
	next          Generator
	registry      *tools.Registry
	maxIterations int
}

var _ Generator = (*ToolCallingGenerator)(nil)

func NewToolCallingGenerator(next Generator, registry *tools.Registry, maxIterations int) *ToolCallingGenerator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &ToolCallingGenerator{next: next, registry: registry, maxIterations: maxIterations}
}

func (g *ToolCallingGenerator) Generate(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error) {
	logger := klog.FromContext(ctx)
	callbacks, defs, err := g.resolve(prompt)
	if err != nil {
		return nil, err
	}
	if len(defs) > 0 {
		prompt.Tools = defs
	}

	msgs := chat.CloneMessages(prompt.Messages)
	var usage chat.Usage
	for iteration := 1; ; iteration++ {
		res, err := g.next.Generate(ctx, prompt.WithMessages(msgs))
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = &chat.GenerationResult{}
		}
		usage = usage.Add(res.Usage)

		primary, ok := res.Primary()
		if !ok || !primary.Message.HasToolCalls() {
			res.Usage = usage
			logger.V(logging.DEBUG).Info("Tool loop finished", "iterations", iteration)
			return res, nil
		}
		if iteration >= g.maxIterations {
			err := fmt.Errorf("%w: %d generations", ErrToolLoopOverrun, g.maxIterations)
			logger.Error(err, "Tool loop:")
			return nil, err
		}

		msgs = append(msgs, primary.Message.Clone())
		for _, call := range primary.Message.ToolCalls {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := g.invoke(ctx, callbacks, call)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, chat.ToolMessage(call.ID, call.Name, out))
		}
	}
}

// resolve collects the callbacks enabled on the prompt. Direct callbacks win over
// registry entries of the same name; an unknown function name is an error.
func (g *ToolCallingGenerator) resolve(prompt chat.Prompt) (map[string]tools.Callback, []tools.Definition, error) {
	callbacks := make(map[string]tools.Callback)
	var defs []tools.Definition
	for _, cb := range prompt.FunctionCallbacks() {
		if _, dup := callbacks[cb.Name()]; dup {
			continue
		}
		callbacks[cb.Name()] = cb
		defs = append(defs, tools.DefinitionOf(cb))
	}
	for _, name := range prompt.FunctionNames() {
		if _, ok := callbacks[name]; ok {
			continue
		}
		cb, ok := g.registry.Lookup(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
		}
		callbacks[name] = cb
		defs = append(defs, tools.DefinitionOf(cb))
	}
	return callbacks, defs, nil
}

func (g *ToolCallingGenerator) invoke(ctx context.Context, callbacks map[string]tools.Callback, call chat.ToolCall) (string, error) {
	logger := klog.FromContext(ctx).WithValues("tool", call.Name, "callId", call.ID)
	cb, ok := callbacks[call.Name]
	if !ok {
		cb, ok = g.registry.Lookup(call.Name)
	}
	if !ok {
		metrics.RecordToolCall(call.Name, metrics.ResultFailed)
		err := fmt.Errorf("%w: %s (call %s)", ErrUnknownTool, call.Name, call.ID)
		logger.Error(err, "Tool call:")
		return "", err
	}
	out, err := cb.Call(ctx, call.Arguments)
	if err != nil {
		metrics.RecordToolCall(call.Name, metrics.ResultFailed)
		err = fmt.Errorf("%w: %s (call %s): %w", ErrToolFailed, call.Name, call.ID, err)
		logger.Error(err, "Tool call:")
		return "", err
	}
	metrics.RecordToolCall(call.Name, metrics.ResultSuccess)
	logger.V(logging.DEBUG).Info("Tool call succeeded", "resultBytes", len(out))
	return out, nil
}
