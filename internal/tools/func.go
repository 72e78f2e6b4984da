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

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// FuncCallback adapts a typed Go function to the Callback contract.
type FuncCallback[In, Out any] struct {
	name        string
	description string
	schema      string
	fn          func(context.Context, In) (Out, error)
	convert     func(Out) (string, error)
}

type FuncOption[In, Out any] func(*FuncCallback[In, Out])

// WithResponseConverter replaces the default rendering of the function result.
func WithResponseConverter[In, Out any](convert func(Out) (string, error)) FuncOption[In, Out] {
	return func(f *FuncCallback[In, Out]) {
		f.convert = convert
	}
}

// NewFunc builds a callback whose JSON arguments are decoded into In.
// Results are rendered as-is when Out is a string, and JSON encoded otherwise.
func NewFunc[In, Out any](name, description, schema string,
	fn func(context.Context, In) (Out, error), opts ...FuncOption[In, Out]) *FuncCallback[In, Out] {

	f := &FuncCallback[In, Out]{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
		convert:     defaultConvert[Out],
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FuncCallback[In, Out]) Name() string        { return f.name }
func (f *FuncCallback[In, Out]) Description() string { return f.description }
func (f *FuncCallback[In, Out]) InputSchema() string { return f.schema }

func (f *FuncCallback[In, Out]) Call(ctx context.Context, arguments string) (string, error) {
	var in In
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &in); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMalformedArguments, f.name, err)
		}
	}
	out, err := f.fn(ctx, in)
	if err != nil {
		return "", err
	}
	return f.convert(out)
}

func defaultConvert[Out any](out Out) (string, error) {
	if s, ok := any(out).(string); ok {
		return s, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
