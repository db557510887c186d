package ai

import (
	"context"

	"github.com/kapu/pec-ai-go/internal/domain"
)

type fakeTextProvider struct {
	name     string
	text     string
	err      error
	healthy  bool
	calls    int
	requests []GenerateRequest
}

func (f *fakeTextProvider) Name() string { return f.name }

func (f *fakeTextProvider) Generate(_ context.Context, req GenerateRequest) (ProviderResult, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return ProviderResult{}, f.err
	}
	return ProviderResult{Text: f.text, Model: f.name + "-model"}, nil
}

func (f *fakeTextProvider) Ping(context.Context) bool { return f.healthy }

type fakeImageProvider struct {
	img   domain.EncodedImage
	err   error
	calls int
}

func (f *fakeImageProvider) Name() string { return "fake-image" }

func (f *fakeImageProvider) GenerateImage(_ context.Context, _ GenerateRequest) (domain.EncodedImage, string, error) {
	f.calls++
	return f.img, "fake-image-model", f.err
}
