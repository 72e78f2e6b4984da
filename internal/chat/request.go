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
	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

// Request is one user turn entering the pipeline.
type Request struct {
	ConversationID string
	Messages       []Message
	Options        Options
	// Functions names registry callbacks to enable for this turn.
	Functions []string
	// Callbacks are enabled for this turn and shadow registry entries of the same name.
	Callbacks []tools.Callback
}

// Prompt is the outgoing message list handed to the generator.
type Prompt struct {
	Messages []Message
	Options  Options
	Tools    []tools.Definition
}

// Prompt returns the un-augmented prompt for the request.
// Options able to carry functions receive the request's functions and callbacks.
func (r *Request) Prompt() Prompt {
	return Prompt{
		Messages: CloneMessages(r.Messages),
		Options:  r.resolveOptions(),
	}
}

func (r *Request) resolveOptions() Options {
	if r.Options == nil {
		if len(r.Functions) == 0 && len(r.Callbacks) == 0 {
			return nil
		}
		return (&ModelOptions{}).WithFunctions(MergeNames(nil, r.Functions), MergeCallbacks(nil, r.Callbacks))
	}
	fco, ok := r.Options.(FunctionCallingOptions)
	if !ok {
		return r.Options.Copy()
	}
	return fco.WithFunctions(
		MergeNames(fco.FunctionNames(), r.Functions),
		MergeCallbacks(fco.FunctionCallbacks(), r.Callbacks),
	)
}

// WithMessages returns a copy of p with msgs as its message list.
func (p Prompt) WithMessages(msgs []Message) Prompt {
	p.Messages = msgs
	return p
}

// FunctionNames returns the function names carried by the prompt options.
func (p Prompt) FunctionNames() []string {
	if fco, ok := p.Options.(FunctionCallingOptions); ok {
		return fco.FunctionNames()
	}
	return nil
}

// FunctionCallbacks returns the callbacks carried by the prompt options.
func (p Prompt) FunctionCallbacks() []tools.Callback {
	if fco, ok := p.Options.(FunctionCallingOptions); ok {
		return fco.FunctionCallbacks()
	}
	return nil
}
