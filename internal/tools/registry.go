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
	"fmt"
	"sort"
	"sync"
)

// Registry maps function names to callbacks. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	callbacks map[string]Callback
}

func NewRegistry(callbacks ...Callback) (*Registry, error) {
	r := &Registry{callbacks: make(map[string]Callback)}
	for _, cb := range callbacks {
		if err := r.Register(cb); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(cb Callback) error {
	if cb == nil {
		return fmt.Errorf("callback is nil")
	}
	name := cb.Name()
	if name == "" {
		return fmt.Errorf("callback name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[name]; exists {
		return fmt.Errorf("callback %s already registered", name)
	}
	r.callbacks[name] = cb
	return nil
}

// Lookup returns the callback registered under name.
func (r *Registry) Lookup(name string) (Callback, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.callbacks[name]
	return cb, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
