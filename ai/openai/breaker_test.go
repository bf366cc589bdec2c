package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerModel_OpensAfterFailures(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	b := newBreakerModel("test", model, slog.Default())
	g := newGeneratorWithModel(b, 5)

	for range breakerMinRequests {
		_, err := g.Answer(context.Background(), "milk", nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, gobreaker.StateOpen, b.cb.State())

	_, err := g.Answer(context.Background(), "milk", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, breakerMinRequests, model.calls, "open breaker skips the model")
}

func TestBreakerModel_PassesThrough(t *testing.T) {
	model := &fakeModel{responses: []string{"Oat milk is in aisle 3."}}
	b := newBreakerModel("test", model, slog.Default())

	out, err := b.Call(context.Background(), "where is oat milk")
	require.NoError(t, err)
	assert.Equal(t, "Oat milk is in aisle 3.", out)
	assert.Equal(t, gobreaker.StateClosed, b.cb.State())
}
