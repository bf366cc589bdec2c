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

import "errors"

var (
	// ErrEmptyEmbedding indicates the service returned no vector for an input.
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")

	// ErrNoChoices indicates the chat model returned no completion.
	ErrNoChoices = errors.New("model returned no choices")

	// ErrMalformedSuggestions indicates the model's suggestion JSON could not be parsed.
	ErrMalformedSuggestions = errors.New("malformed suggestions")
)
