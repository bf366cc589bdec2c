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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/allanbutler/kg-rag-grocery/ai"
)

// maxParseAttempts bounds how often a malformed suggestion response is retried.
const maxParseAttempts = 3

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	maxContexts int
	logger      *slog.Logger
}

// suggestionList is the JSON object the model is asked to produce.
type suggestionList struct {
	Suggestions []ai.Suggestion `json:"suggestions"`
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.LLMHost),
		openai.WithToken("none"),
		openai.WithModel(config.LLMModel),
	)
	if err != nil {
		return nil, err
	}

	g := newGeneratorWithModel(client, config.MaxContexts)
	g.client = newBreakerModel("openai-generator", client, g.logger)
	return g, nil
}

func newGeneratorWithModel(client llms.Model, maxContexts int) *Generator {
	return &Generator{
		client:      client,
		maxContexts: maxContexts,
		logger:      slog.Default().With("component", "openai-generator"),
	}
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

func (g *Generator) messages(system, query string, contexts []string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildUserPrompt(query, capContexts(contexts, g.maxContexts)))},
		},
	}
}

// Suggest asks the model for product suggestions in JSON mode.
func (g *Generator) Suggest(ctx context.Context, query string, contexts []string) ([]ai.Suggestion, error) {
	content := g.messages(suggestSystemPrompt, query, contexts)

	var lastErr error
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			g.logger.Error("failed to generate suggestions", "attempt", attempt, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			return nil, ErrNoChoices
		}

		suggestions, err := parseSuggestions(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			g.logger.Warn("error parsing suggestion response",
				"attempt", attempt,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		g.logger.Debug("generated suggestions", "count", len(suggestions))
		return suggestions, nil
	}

	return nil, lastErr
}

// Answer asks the model for a grounded free-text answer.
func (g *Generator) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	content := g.messages(answerSystemPrompt, query, contexts)

	response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		g.logger.Error("failed to generate answer", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrNoChoices
	}

	answer := strings.TrimSpace(response.Choices[0].Content)
	if answer == "" {
		return "", ErrNoChoices
	}
	return answer, nil
}

// parseSuggestions accepts either {"suggestions": [...]} or a bare array,
// optionally wrapped in markdown code fences.
func parseSuggestions(raw string) ([]ai.Suggestion, error) {
	text := repairJSON(stripCodeFences(raw))

	var list suggestionList
	if err := json.Unmarshal([]byte(text), &list); err == nil && list.Suggestions != nil {
		return validSuggestions(list.Suggestions)
	}

	var bare []ai.Suggestion
	if err := json.Unmarshal([]byte(text), &bare); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSuggestions, err)
	}
	return validSuggestions(bare)
}

func validSuggestions(in []ai.Suggestion) ([]ai.Suggestion, error) {
	out := make([]ai.Suggestion, 0, len(in))
	for _, s := range in {
		s.Product = strings.TrimSpace(s.Product)
		if s.Product == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 && len(in) > 0 {
		return nil, fmt.Errorf("%w: no suggestion names a product", ErrMalformedSuggestions)
	}
	return out, nil
}
