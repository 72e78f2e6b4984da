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

package backend

import "fmt"

type ErrorCategory string

const (
	ErrCategoryRateLimit  ErrorCategory = "RATE_LIMIT"   // retryable
	ErrCategoryServer     ErrorCategory = "SERVER_ERROR" // retryable
	ErrCategoryInvalidReq ErrorCategory = "INVALID_REQ"  // not retryable
	ErrCategoryAuth       ErrorCategory = "AUTH_ERROR"   // not retryable
	ErrCategoryUnknown    ErrorCategory = "UNKNOWN"      // not retryable
)

// Error is a categorised failure of a backend call.
type Error struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	RawError   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.RawError
}

func (e *Error) IsRetryable() bool {
	return e.Category == ErrCategoryRateLimit || e.Category == ErrCategoryServer
}

func categoryOf(statusCode int) ErrorCategory {
	switch {
	case statusCode == 400:
		return ErrCategoryInvalidReq
	case statusCode == 401, statusCode == 403:
		return ErrCategoryAuth
	case statusCode == 429:
		return ErrCategoryRateLimit
	case statusCode >= 500:
		return ErrCategoryServer
	default:
		return ErrCategoryUnknown
	}
}
