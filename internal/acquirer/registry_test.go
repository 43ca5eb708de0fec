package acquirer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct{ name string }

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Authorize(context.Context, AuthorizeInput) (*AuthorizeOutput, error) {
	return &AuthorizeOutput{Outcome: OutcomeAuthorized}, nil
}
func (f *fakeAdapter) Capture(context.Context, CaptureInput) (*CaptureOutput, error) {
	return &CaptureOutput{Outcome: OutcomeSucceeded}, nil
}
func (f *fakeAdapter) Refund(context.Context, RefundInput) (*RefundOutput, error) {
	return &RefundOutput{Outcome: OutcomeSucceeded}, nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&fakeAdapter{name: "mock"})
	r.Register(&fakeAdapter{name: "cybersource"})

	a, err := r.Get("mock")
	require.NoError(t, err)
	assert.Equal(t, "mock", a.Name())

	assert.Equal(t, []string{"cybersource", "mock"}, r.Names())
}

func TestRegistryGetUnknownListsAvailable(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&fakeAdapter{name: "mock"})

	_, err := r.Get("stripe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adapter not found")
	assert.Contains(t, err.Error(), "mock")
}

func TestRegistryReRegisterOverwrites(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	first := &fakeAdapter{name: "mock"}
	second := &fakeAdapter{name: "mock"}
	r.Register(first)
	r.Register(second)

	a, err := r.Get("mock")
	require.NoError(t, err)
	assert.Same(t, Adapter(second), a)
}
