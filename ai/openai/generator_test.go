package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel is an llms.Model returning canned completions in order.
type fakeModel struct {
	responses []string
	err       error
	calls     int
	lastUser  string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range messages {
		if m.Role == llms.ChatMessageTypeHuman {
			for _, p := range m.Parts {
				if tp, ok := p.(llms.TextContent); ok {
					f.lastUser = tp.Text
				}
			}
		}
	}
	if len(f.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerator_Suggest(t *testing.T) {
	model := &fakeModel{responses: []string{
		"```json\n{\"suggestions\": [{\"product\": \"Oat Crunch\", \"brand\": \"Acme\", \"price\": 4.5, \"why\": \"nut-free\"},]}\n```",
	}}
	g := newGeneratorWithModel(model, 2)

	got, err := g.Suggest(context.Background(), "nut-free granola", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Oat Crunch", got[0].Product)
	assert.Equal(t, "Acme", got[0].Brand)
	require.NotNil(t, got[0].Price)
	assert.InDelta(t, 4.5, *got[0].Price, 1e-9)

	assert.Contains(t, model.lastUser, "[2] b")
	assert.NotContains(t, model.lastUser, "[3]", "contexts are capped")
}

func TestGenerator_SuggestRetriesMalformed(t *testing.T) {
	model := &fakeModel{responses: []string{"not json", `[{"product": "Milk", "why": "cheap"}]`}}
	g := newGeneratorWithModel(model, 20)

	got, err := g.Suggest(context.Background(), "milk", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Price)
}

func TestGenerator_SuggestGivesUp(t *testing.T) {
	model := &fakeModel{responses: []string{"nope"}}
	g := newGeneratorWithModel(model, 20)

	_, err := g.Suggest(context.Background(), "milk", nil)
	assert.ErrorIs(t, err, ErrMalformedSuggestions)
	assert.Equal(t, maxParseAttempts, model.calls)
}

func TestGenerator_ModelError(t *testing.T) {
	boom := errors.New("connection refused")
	g := newGeneratorWithModel(&fakeModel{err: boom}, 20)

	_, err := g.Suggest(context.Background(), "milk", nil)
	assert.ErrorIs(t, err, boom)

	_, err = g.Answer(context.Background(), "milk", nil)
	assert.ErrorIs(t, err, boom)
}

func TestGenerator_Answer(t *testing.T) {
	model := &fakeModel{responses: []string{"  Try Oat Crunch [1].  "}}
	g := newGeneratorWithModel(model, 20)

	got, err := g.Answer(context.Background(), "granola?", []string{"Oat Crunch (Acme) - $4.50"})
	require.NoError(t, err)
	assert.Equal(t, "Try Oat Crunch [1].", got)
	assert.True(t, strings.HasPrefix(model.lastUser, "Query: granola?"))

	_, err = newGeneratorWithModel(&fakeModel{}, 20).Answer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestParseSuggestions(t *testing.T) {
	got, err := parseSuggestions(`{"suggestions": []}`)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseSuggestions(`{"suggestions": [{"product": "  ", "why": "x"}]}`)
	assert.ErrorIs(t, err, ErrMalformedSuggestions)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid untouched", `{"a": 1, "b": "x, y"}`, `{"a": 1, "b": "x, y"}`},
		{"missing key quote", `{"a": 1, b": 2}`, `{"a": 1, "b": 2}`},
		{"trailing comma", `{"a": [1, 2,], }`, `{"a": [1, 2]}`},
		{"comma in string kept", `{"a": "x,}"}`, `{"a": "x,}"}`},
		{"unquoted keys and single quotes", `{product: 'Oat Milk', why: 'vegan'}`, `{"product": "Oat Milk", "why": "vegan"}`},
		{"truncated", `{"suggestions": [{"product": "Oat Milk"`, `{"suggestions": [{"product": "Oat Milk"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestQuoteKeys(t *testing.T) {
	assert.Equal(t, `{"a": 1, "b": 2}`, quoteKeys(`{"a": 1, b": 2}`))
	assert.Equal(t, `{"a": "x, y"}`, quoteKeys(`{"a": "x, y"}`))
	assert.Equal(t, `[1, 2]`, quoteKeys(`[1, 2]`))
}
