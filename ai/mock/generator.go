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

package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/allanbutler/kg-rag-grocery/ai"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// SuggestFunc is called by Suggest if set.
	// If nil, suggests one product per context, up to five.
	SuggestFunc func(ctx context.Context, query string, contexts []string) ([]ai.Suggestion, error)

	// AnswerFunc is called by Answer if set.
	// If nil, answers with a citation of the first context.
	AnswerFunc func(ctx context.Context, query string, contexts []string) (string, error)

	callCount atomic.Int64
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Suggest returns canned suggestions.
func (m *MockGenerator) Suggest(ctx context.Context, query string, contexts []string) ([]ai.Suggestion, error) {
	m.callCount.Add(1)

	if m.SuggestFunc != nil {
		return m.SuggestFunc(ctx, query, contexts)
	}

	out := make([]ai.Suggestion, 0, min(len(contexts), 5))
	for _, c := range contexts[:min(len(contexts), 5)] {
		out = append(out, ai.Suggestion{Product: c, Why: "mentioned in context"})
	}
	return out, nil
}

// Answer returns a canned answer.
func (m *MockGenerator) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	m.callCount.Add(1)

	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, query, contexts)
	}

	if len(contexts) == 0 {
		return fmt.Sprintf("No grounded answer for %q.", query), nil
	}
	return fmt.Sprintf("%s [1]", contexts[0]), nil
}

// CallCount returns the number of times any method was called.
func (m *MockGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom behavior.
func (m *MockGenerator) Reset() {
	m.callCount.Store(0)
	m.SuggestFunc = nil
	m.AnswerFunc = nil
}
