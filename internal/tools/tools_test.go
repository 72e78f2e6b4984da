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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherRequest struct {
	Location string `json:"location"`
	Unit     string `json:"unit"`
}

type weatherResponse struct {
	Temp float64 `json:"temp"`
	Unit string  `json:"unit"`
}

func newWeather() *FuncCallback[weatherRequest, weatherResponse] {
	return NewFunc("getCurrentWeather", "Get the weather in location", `{"type":"object"}`,
		func(_ context.Context, in weatherRequest) (weatherResponse, error) {
			if in.Location == "" {
				return weatherResponse{}, errors.New("location is required")
			}
			return weatherResponse{Temp: 30, Unit: "C"}, nil
		})
}

func TestRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		r, err := NewRegistry(newWeather())
		require.NoError(t, err)

		cb, ok := r.Lookup("getCurrentWeather")
		assert.True(t, ok)
		assert.Equal(t, "getCurrentWeather", cb.Name())

		_, ok = r.Lookup("missing")
		assert.False(t, ok)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		r, err := NewRegistry(newWeather())
		require.NoError(t, err)
		err = r.Register(newWeather())
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("rejects nil and unnamed callbacks", func(t *testing.T) {
		r, err := NewRegistry()
		require.NoError(t, err)
		assert.Error(t, r.Register(nil))
		assert.Error(t, r.Register(NewFunc("", "", "", func(context.Context, struct{}) (string, error) { return "", nil })))
	})

	t.Run("names are sorted", func(t *testing.T) {
		noop := func(context.Context, struct{}) (string, error) { return "", nil }
		r, err := NewRegistry(NewFunc("b", "", "", noop), NewFunc("a", "", "", noop))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, r.Names())
	})

	t.Run("nil registry finds nothing", func(t *testing.T) {
		var r *Registry
		_, ok := r.Lookup("x")
		assert.False(t, ok)
		assert.Nil(t, r.Names())
	})
}

func TestFuncCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes arguments and encodes result as JSON", func(t *testing.T) {
		out, err := newWeather().Call(ctx, `{"location":"San Francisco","unit":"C"}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{"temp":30,"unit":"C"}`, out)
	})

	t.Run("string results pass through", func(t *testing.T) {
		cb := NewFunc("echo", "", "", func(_ context.Context, in weatherRequest) (string, error) {
			return in.Location, nil
		})
		out, err := cb.Call(ctx, `{"location":"Paris"}`)
		require.NoError(t, err)
		assert.Equal(t, "Paris", out)
	})

	t.Run("custom response converter", func(t *testing.T) {
		cb := NewFunc("getCurrentWeather", "", "",
			func(_ context.Context, _ weatherRequest) (weatherResponse, error) {
				return weatherResponse{Temp: 30}, nil
			},
			WithResponseConverter[weatherRequest](func(r weatherResponse) (string, error) {
				return "30.0f", nil
			}))
		out, err := cb.Call(ctx, `{"location":"San Francisco"}`)
		require.NoError(t, err)
		assert.Equal(t, "30.0f", out)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		_, err := newWeather().Call(ctx, `{"location":`)
		assert.ErrorIs(t, err, ErrMalformedArguments)
	})

	t.Run("function error propagates", func(t *testing.T) {
		_, err := newWeather().Call(ctx, `{}`)
		assert.EqualError(t, err, "location is required")
	})

	t.Run("definition", func(t *testing.T) {
		d := DefinitionOf(newWeather())
		assert.Equal(t, Definition{
			Name:        "getCurrentWeather",
			Description: "Get the weather in location",
			InputSchema: `{"type":"object"}`,
		}, d)
	})
}
