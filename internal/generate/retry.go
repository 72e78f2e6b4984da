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
	"time"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
)

// RetryPolicy is bounded exponential backoff.
type RetryPolicy struct {
	MaxAttempts    int           `json:"max_attempts" yaml:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	Multiplier     float64       `json:"multiplier" yaml:"multiplier"`
	MaxBackoff     time.Duration `json:"max_backoff" yaml:"max_backoff"`
	// Retryable decides whether an error is transient. Nil uses IsRetryable.
	Retryable func(error) bool `json:"-" yaml:"-"`

	sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    10,
		InitialBackoff: 2 * time.Second,
		Multiplier:     2,
		MaxBackoff:     3 * time.Minute,
	}
}

// IsRetryable reports whether err, or an error it wraps, declares itself retryable.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	return errors.As(err, &r) && r.IsRetryable()
}

// Backoff returns the wait after the given failed attempt, starting at 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// The last error is returned unchanged. Cancellation during a wait returns the context error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	logger := klog.FromContext(ctx)
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) || ctx.Err() != nil {
			return err
		}
		wait := p.Backoff(attempt)
		metrics.RecordBackendRetry()
		logger.V(logging.INFO).Info("Retrying backend call", "attempt", attempt, "maxAttempts", attempts, "wait", wait, "err", err.Error())
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryingBackend applies a RetryPolicy around another Backend. It is the only retry layer:
// backend.HTTPBackend makes one attempt per Call and does not enable resty's own retries.
type RetryingBackend struct {
	backend Backend
	policy  RetryPolicy
}

func NewRetryingBackend(backend Backend, policy RetryPolicy) *RetryingBackend {
	return &RetryingBackend{backend: backend, policy: policy}
}

func (b *RetryingBackend) Call(ctx context.Context, prompt chat.Prompt) (*chat.GenerationResult, error) {
	var res *chat.GenerationResult
	err := b.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = b.backend.Call(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
