package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJSONGenerator struct {
	payload string
	err     error
	req     GenerateRequest
}

func (f *fakeJSONGenerator) GenerateJSON(_ context.Context, req GenerateRequest, dest any) (*GenerateMetadata, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &GenerateMetadata{Provider: "fake"}, json.Unmarshal([]byte(f.payload), dest)
}

type fakeImageGenerator struct {
	result Result[domain.EncodedImage]
	err    error
	req    GenerateRequest
}

func (f *fakeImageGenerator) GenerateImage(_ context.Context, req GenerateRequest) (Result[domain.EncodedImage], *GenerateMetadata, error) {
	f.req = req
	return f.result, &GenerateMetadata{Provider: "fake"}, f.err
}

var testPhoto = domain.EncodedImage{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestRecognizeReturnsFields(t *testing.T) {
	gen := &fakeJSONGenerator{payload: `{"objectName":"  Maçã ","category":"Alimentos"}`}
	r := NewObjectRecognizer(gen, nil, zap.NewNop())

	result, err := r.Recognize(context.Background(), testPhoto, "pt-BR")
	require.NoError(t, err)
	got, ok := result.Get()
	require.True(t, ok)
	assert.Equal(t, domain.Recognition{ObjectName: "Maçã", Category: "Alimentos"}, got)

	require.Len(t, gen.req.Images, 1)
	assert.Equal(t, testPhoto, gen.req.Images[0])
	assert.Contains(t, gen.req.Prompt, "pt-BR")
	assert.NotNil(t, gen.req.Options.Schema)
}

func TestRecognizeBlankFieldsIsEmpty(t *testing.T) {
	gen := &fakeJSONGenerator{payload: `{"objectName":"","category":"Alimentos"}`}
	result, err := NewObjectRecognizer(gen, nil, zap.NewNop()).Recognize(context.Background(), testPhoto, "pt-BR")
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestRecognizeEmptyResponseIsEmpty(t *testing.T) {
	gen := &fakeJSONGenerator{err: fmt.Errorf("blank: %w", ErrEmptyResponse)}
	result, err := NewObjectRecognizer(gen, nil, zap.NewNop()).Recognize(context.Background(), testPhoto, "en")
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestRecognizeTransportError(t *testing.T) {
	gen := &fakeJSONGenerator{err: errors.New("connection refused")}
	_, err := NewObjectRecognizer(gen, nil, zap.NewNop()).Recognize(context.Background(), testPhoto, "en")
	assert.Error(t, err)
}

func TestSynthesizeUsesOriginalPhotoAndRecognition(t *testing.T) {
	card := domain.EncodedImage{MIMEType: "image/png", Data: []byte{9}}
	gen := &fakeImageGenerator{result: Ok(card)}
	s := NewImageCardSynthesizer(gen, nil, zap.NewNop())

	result, err := s.Synthesize(context.Background(), testPhoto, domain.Recognition{ObjectName: "Bola", Category: "Brinquedos"}, "pt-BR")
	require.NoError(t, err)
	got, ok := result.Get()
	require.True(t, ok)
	assert.Equal(t, card, got)
	assert.Equal(t, []domain.EncodedImage{testPhoto}, gen.req.Images)
	assert.Contains(t, gen.req.Prompt, "Bola")
	assert.Contains(t, gen.req.Prompt, "Brinquedos")
}

func TestSynthesizeEmpty(t *testing.T) {
	gen := &fakeImageGenerator{result: Empty[domain.EncodedImage]()}
	result, err := NewImageCardSynthesizer(gen, nil, zap.NewNop()).
		Synthesize(context.Background(), testPhoto, domain.Recognition{ObjectName: "Bola", Category: "Brinquedos"}, "pt-BR")
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}
