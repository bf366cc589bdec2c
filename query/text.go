package query

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9%]+`)

// Stop words dropped from the token set. Budget markers are included since
// they say nothing about the product itself.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "with": true,
	"for": true, "to": true, "of": true, "in": true, "on": true, "at": true,
	"under": true, "less": true, "than": true, "below": true, "max": true,
	"maximum": true, "most": true, "budget": true,
}

// tokenize lowercases text and returns its alphanumeric (plus '%') runs in
// order of appearance, including stop words and duplicates.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// filterTokens drops stop words, tokens in exclude and repeats, keeping the
// first occurrence order.
func filterTokens(tokens []string, exclude map[string]bool) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopWords[tok] || exclude[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
