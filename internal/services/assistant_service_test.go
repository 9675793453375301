package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	answer string
	err    error

	model, instruction, prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, model, instruction, prompt string) (string, error) {
	f.model, f.instruction, f.prompt = model, instruction, prompt
	return f.answer, f.err
}

func TestAssistantAsk(t *testing.T) {
	gen := &fakeGenerator{answer: "保持湿度在 85% 以上。"}
	svc := NewAssistantService(gen, "gemini-test", zap.NewNop())

	answer, err := svc.Ask(context.Background(), "  平菇出菇需要多少湿度？ ")
	require.NoError(t, err)
	assert.Equal(t, "保持湿度在 85% 以上。", answer)
	assert.Equal(t, "gemini-test", gen.model)
	assert.Equal(t, "平菇出菇需要多少湿度？", gen.prompt)
	assert.Contains(t, gen.instruction, "真菌学专家")
}

func TestAssistantErrors(t *testing.T) {
	ctx := context.Background()

	svc := NewAssistantService(&fakeGenerator{}, "m", zap.NewNop())
	_, err := svc.Ask(ctx, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Ask(ctx, strings.Repeat("菇", maxQuestionLen+1))
	assert.ErrorIs(t, err, ErrValidation)

	disabled := NewAssistantService(nil, "m", zap.NewNop())
	assert.False(t, disabled.Enabled())
	_, err = disabled.Ask(ctx, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)

	failing := NewAssistantService(&fakeGenerator{err: errors.New("quota exceeded")}, "m", zap.NewNop())
	_, err = failing.Ask(ctx, "hello")
	assert.ErrorIs(t, err, ErrUpstream)
}
