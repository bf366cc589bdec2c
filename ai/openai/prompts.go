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
	"fmt"
	"strings"
)

const suggestSystemPrompt = `You are a grocery shopping assistant. Return product suggestions and key facts
based on a grocery search query, using ONLY the numbered context snippets provided. The snippets come from a
product similarity index and a product knowledge graph.

Output ONLY valid JSON with this exact shape, no preamble or explanation:

{"suggestions": [{"product": "<product name>", "brand": "<brand>", "price": <number>, "why": "<short reason>"}]}

Rules:
- Suggest at most 5 products, best first.
- Respect any budget and dietary constraints stated in the query.
- "why" is one short sentence.
- Omit "brand" or "price" if the context does not state them.
- If nothing in the context fits, return {"suggestions": []}.`

const answerSystemPrompt = `You are a grocery shopping assistant. Answer the question grounded ONLY in the
numbered context snippets provided. Cite the snippets you rely on with brief citations like [1] or [2][3].
If the context does not contain the answer, say so. Keep the answer short.`

// buildUserPrompt renders the query followed by numbered context snippets.
func buildUserPrompt(query string, contexts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nContext:\n", query)
	if len(contexts) == 0 {
		b.WriteString("(none)\n")
	}
	for i, c := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c)
	}
	return b.String()
}
