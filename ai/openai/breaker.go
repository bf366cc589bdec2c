// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
)

const (
	breakerMinRequests  = 3
	breakerFailureRatio = 0.6
	breakerTimeout      = 30 * time.Second
)

// breakerModel wraps an llms.Model so that a failing chat service is
// skipped for a cool-down period instead of being called on every query.
// While the breaker is open, calls fail with gobreaker.ErrOpenState.
type breakerModel struct {
	llms.Model
	cb *gobreaker.CircuitBreaker
}

func newBreakerModel(name string, model llms.Model, logger *slog.Logger) *breakerModel {
	st := gobreaker.Settings{
		Name:    name,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && ratio >= breakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerModel{Model: model, cb: gobreaker.NewCircuitBreaker(st)}
}

// GenerateContent implements llms.Model.
func (b *breakerModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.Model.GenerateContent(ctx, messages, options...)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*llms.ContentResponse), nil
}

// Call implements llms.Model.
func (b *breakerModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, b, prompt, options...)
}
