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

// Package tokens estimates the token cost of conversation messages.
package tokens

import (
	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

// DefaultCharactersPerToken overestimates for English text, which makes trimming start early.
const DefaultCharactersPerToken = 4.0

// MessageOverhead is the framing cost charged to every message on top of its characters.
const MessageOverhead = 1

// Estimator estimates token counts.
// Estimate of a set must equal the sum of EstimateMessage over its members.
type Estimator interface {
	EstimateMessage(msg chat.Message) int
	Estimate(msgs []chat.Message) int
}

// CharEstimator derives tokens from a fixed characters-per-token ratio.
type CharEstimator struct {
	charactersPerToken float64
}

func NewCharEstimator(charactersPerToken float64) *CharEstimator {
	if charactersPerToken <= 0 {
		charactersPerToken = DefaultCharactersPerToken
	}
	return &CharEstimator{charactersPerToken: charactersPerToken}
}

// EstimateMessage truncates characters over the ratio and adds MessageOverhead,
// so an empty message still costs one token.
func (e *CharEstimator) EstimateMessage(msg chat.Message) int {
	chars := len(msg.Role) + len(msg.Content) + len(msg.Name)
	for _, tc := range msg.ToolCalls {
		chars += len(tc.Name) + len(tc.Arguments)
	}
	return int(float64(chars)/e.charactersPerToken) + MessageOverhead
}

func (e *CharEstimator) Estimate(msgs []chat.Message) int {
	return Sum(e, msgs)
}

// Func estimates each message with a plain function.
type Func func(chat.Message) int

func (f Func) EstimateMessage(msg chat.Message) int {
	return f(msg)
}

func (f Func) Estimate(msgs []chat.Message) int {
	return Sum(f, msgs)
}

// Sum adds the per-message estimates of msgs.
func Sum(e Estimator, msgs []chat.Message) int {
	total := 0
	for _, m := range msgs {
		total += e.EstimateMessage(m)
	}
	return total
}

// Counter is the running token total of one turn. It is not safe for concurrent use.
type Counter struct {
	total int
}

func (c *Counter) Add(n int) int {
	c.total += n
	return c.total
}

func (c *Counter) Total() int {
	return c.total
}
