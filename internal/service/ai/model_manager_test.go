package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateJSONDecodesPrimaryAnswer(t *testing.T) {
	primary := &fakeTextProvider{name: "primary", text: "```json\n{\"objectName\":\"Bola\",\"category\":\"Brinquedos\"}\n```"}
	mm := newModelManagerWithProviders(primary, nil, nil, zap.NewNop())

	var out domain.Recognition
	meta, err := mm.GenerateJSON(context.Background(), GenerateRequest{Prompt: "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Bola", out.ObjectName)
	assert.Equal(t, "Brinquedos", out.Category)
	assert.Equal(t, "primary", meta.Provider)
	assert.False(t, meta.UsedFallback)
	require.Len(t, primary.requests, 1)
	assert.True(t, primary.requests[0].Options.JSONMode)
}

func TestGenerateJSONFallsBack(t *testing.T) {
	primary := &fakeTextProvider{name: "primary", err: errors.New("503 Service Unavailable")}
	fallback := &fakeTextProvider{name: "fallback", text: `{"objectName":"Copo","category":"Cozinha"}`}
	mm := newModelManagerWithProviders(primary, fallback, nil, zap.NewNop())

	var out domain.Recognition
	meta, err := mm.GenerateJSON(context.Background(), GenerateRequest{Prompt: "x"}, &out)
	require.NoError(t, err)
	assert.True(t, meta.UsedFallback)
	assert.Equal(t, "Copo", out.ObjectName)
}

func TestGenerateJSONUnparseableIsEmptyResponse(t *testing.T) {
	primary := &fakeTextProvider{name: "primary", text: "I see an apple"}
	mm := newModelManagerWithProviders(primary, nil, nil, zap.NewNop())

	var out domain.Recognition
	_, err := mm.GenerateJSON(context.Background(), GenerateRequest{Prompt: "x"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, util.CircuitStateClosed, mm.GetCircuitStatus().State)
}

func TestServiceFailuresOpenCircuit(t *testing.T) {
	primary := &fakeTextProvider{name: "primary", err: errors.New("500 internal error")}
	mm := newModelManagerWithProviders(primary, nil, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		var out domain.Recognition
		_, err := mm.GenerateJSON(context.Background(), GenerateRequest{Prompt: "x"}, &out)
		require.Error(t, err)
	}

	var out domain.Recognition
	_, err := mm.GenerateJSON(context.Background(), GenerateRequest{Prompt: "x"}, &out)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, primary.calls)

	mm.ResetCircuit()
	assert.Equal(t, util.CircuitStateClosed, mm.GetCircuitStatus().State)
}

func TestGenerateImageResults(t *testing.T) {
	png := domain.EncodedImage{MIMEType: "image/png", Data: []byte{1, 2, 3}}

	images := &fakeImageProvider{img: png}
	mm := newModelManagerWithProviders(nil, nil, images, zap.NewNop())
	result, _, err := mm.GenerateImage(context.Background(), GenerateRequest{Prompt: "card"})
	require.NoError(t, err)
	got, ok := result.Get()
	require.True(t, ok)
	assert.Equal(t, png, got)

	images = &fakeImageProvider{err: fmt.Errorf("wrapped: %w", ErrEmptyResponse)}
	mm = newModelManagerWithProviders(nil, nil, images, zap.NewNop())
	result, _, err = mm.GenerateImage(context.Background(), GenerateRequest{Prompt: "card"})
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestPingReportsProviders(t *testing.T) {
	primary := &fakeTextProvider{name: "primary", healthy: true}
	fallback := &fakeTextProvider{name: "fallback", healthy: false}
	mm := newModelManagerWithProviders(primary, fallback, nil, zap.NewNop())

	assert.Equal(t, map[string]bool{"primary": true, "fallback": false}, mm.Ping(context.Background()))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isServiceFailure(errors.New(`{"code": 503}`)))
	assert.True(t, isServiceFailure(context.DeadlineExceeded))
	assert.True(t, isRateLimitError(errors.New("RESOURCE_EXHAUSTED: quota")))
	assert.False(t, isServiceFailure(errors.New("400 invalid argument")))
	assert.False(t, isServiceFailure(ErrEmptyResponse))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```{\"a\":1}```"))
	assert.Equal(t, "", stripCodeFence("   "))
}
