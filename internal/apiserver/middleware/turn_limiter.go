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

package middleware

import (
	"net/http"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/common"
	"github.com/llm-d-incubation/chat-engine/internal/metrics"
)

// TurnLimiter bounds the number of turns running at once. Requests over the bound are
// rejected with 429 rather than queued.
type TurnLimiter struct {
	sem chan struct{}
}

// NewTurnLimiter returns nil when max is not positive; a nil limiter admits everything.
func NewTurnLimiter(max int) *TurnLimiter {
	if max <= 0 {
		return nil
	}
	return &TurnLimiter{sem: make(chan struct{}, max)}
}

func (l *TurnLimiter) TryAcquire() bool {
	if l == nil {
		return true
	}
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *TurnLimiter) Release() {
	if l == nil {
		return
	}
	<-l.sem
}

func (l *TurnLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.TryAcquire() {
			metrics.RecordTurnRejected()
			common.WriteError(r.Context(), w, http.StatusTooManyRequests, "too many turns in flight")
			return
		}
		defer l.Release()
		next(w, r)
	}
}
