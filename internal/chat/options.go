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

// Options is an opaque, backend specific bag of model options.
type Options interface {
	Copy() Options
}

// FunctionCallingOptions are options that can carry function registrations.
type FunctionCallingOptions interface {
	Options
	FunctionNames() []string
	FunctionCallbacks() []tools.Callback
	// WithFunctions returns a copy carrying the given registrations.
	WithFunctions(names []string, callbacks []tools.Callback) FunctionCallingOptions
}

// ModelOptions is the option bag understood by the gateway backend.
// Nil pointer fields are unset.
type ModelOptions struct {
	Model       *string          `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature *float64         `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Stop        []string         `json:"stop,omitempty" yaml:"stop,omitempty"`
	Functions   []string         `json:"functions,omitempty" yaml:"functions,omitempty"`
	Callbacks   []tools.Callback `json:"-" yaml:"-"`
}

var _ FunctionCallingOptions = (*ModelOptions)(nil)

func (o *ModelOptions) Copy() Options {
	if o == nil {
		return (*ModelOptions)(nil)
	}
	c := *o
	c.Stop = append([]string(nil), o.Stop...)
	c.Functions = append([]string(nil), o.Functions...)
	c.Callbacks = append([]tools.Callback(nil), o.Callbacks...)
	return &c
}

func (o *ModelOptions) FunctionNames() []string {
	if o == nil {
		return nil
	}
	return o.Functions
}

func (o *ModelOptions) FunctionCallbacks() []tools.Callback {
	if o == nil {
		return nil
	}
	return o.Callbacks
}

func (o *ModelOptions) WithFunctions(names []string, callbacks []tools.Callback) FunctionCallingOptions {
	var c *ModelOptions
	if o == nil {
		c = &ModelOptions{}
	} else {
		c = o.Copy().(*ModelOptions)
	}
	c.Functions = append([]string(nil), names...)
	c.Callbacks = append([]tools.Callback(nil), callbacks...)
	return c
}

// Overlay returns options where every field set in override wins over base.
// Function and callback lists are unioned, base entries first.
func Overlay(base, override *ModelOptions) *ModelOptions {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		return override.Copy().(*ModelOptions)
	}
	if override == nil {
		return base.Copy().(*ModelOptions)
	}
	out := base.Copy().(*ModelOptions)
	if override.Model != nil {
		out.Model = override.Model
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.Stop != nil {
		out.Stop = append([]string(nil), override.Stop...)
	}
	out.Functions = MergeNames(out.Functions, override.Functions)
	out.Callbacks = MergeCallbacks(out.Callbacks, override.Callbacks)
	return out
}

// MergeNames appends the names of b missing from a, keeping order.
func MergeNames(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if _, ok := seen[n]; ok || n == "" {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// MergeCallbacks appends the callbacks of b whose name is not already in a.
func MergeCallbacks(a, b []tools.Callback) []tools.Callback {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []tools.Callback
	for _, list := range [][]tools.Callback{a, b} {
		for _, cb := range list {
			if cb == nil {
				continue
			}
			if _, ok := seen[cb.Name()]; ok {
				continue
			}
			seen[cb.Name()] = struct{}{}
			out = append(out, cb)
		}
	}
	return out
}

func String(s string) *string { return &s }

func Float(f float64) *float64 { return &f }

func Int(i int) *int { return &i }
