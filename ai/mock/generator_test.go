package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGeneratorDefaultEcho(t *testing.T) {
	gen := NewMockGenerator()

	answer, err := gen.Generate(context.Background(), "what does page 3 say?")
	require.NoError(t, err)
	assert.Contains(t, answer, "what does page 3 say?")
	assert.Equal(t, 1, gen.CallCount())
}

func TestMockGeneratorFuncOverride(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model unavailable")
	}

	_, err := gen.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, 1, gen.CallCount())

	gen.Reset()
	assert.Zero(t, gen.CallCount())
}
