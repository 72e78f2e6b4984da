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

// Package tools defines the functions a generation backend may ask to invoke.
package tools

import (
	"context"
	"errors"
)

// ErrMalformedArguments is returned when a tool call payload cannot be decoded.
var ErrMalformedArguments = errors.New("malformed tool arguments")

// Callback is an invocable function exposed to the backend.
type Callback interface {
	Name() string
	Description() string
	// InputSchema is the JSON schema of the arguments payload.
	InputSchema() string
	Call(ctx context.Context, arguments string) (string, error)
}

// Definition advertises a callback to the backend.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema string `json:"input_schema,omitempty"`
}

func DefinitionOf(cb Callback) Definition {
	return Definition{
		Name:        cb.Name(),
		Description: cb.Description(),
		InputSchema: cb.InputSchema(),
	}
}
