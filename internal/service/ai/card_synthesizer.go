package ai

import (
	"context"
	"strings"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/prompt"
	"go.uber.org/zap"
)

// CardSynthesizer renders the card image for a recognized object.
type CardSynthesizer interface {
	Synthesize(ctx context.Context, photo domain.EncodedImage, recognition domain.Recognition, language string) (Result[domain.EncodedImage], error)
}

type ImageCardSynthesizer struct {
	models  imageGenerator
	prompts *prompt.PromptBuilder
	logger  *zap.Logger
}

func NewImageCardSynthesizer(models imageGenerator, prompts *prompt.PromptBuilder, logger *zap.Logger) *ImageCardSynthesizer {
	if prompts == nil {
		prompts = prompt.DefaultPromptBuilder()
	}
	return &ImageCardSynthesizer{models: models, prompts: prompts, logger: logger}
}

func (s *ImageCardSynthesizer) Synthesize(ctx context.Context, photo domain.EncodedImage, recognition domain.Recognition, language string) (Result[domain.EncodedImage], error) {
	text, err := s.prompts.Render(prompt.TemplateCardSynthesis, prompt.CardSynthesisData{
		ObjectName: strings.TrimSpace(recognition.ObjectName),
		Category:   strings.TrimSpace(recognition.Category),
		Language:   language,
	})
	if err != nil {
		return Empty[domain.EncodedImage](), err
	}

	ctx, cancel := withTimeout(ctx, constants.AITimeouts.Synthesis)
	defer cancel()

	result, metadata, err := s.models.GenerateImage(ctx, GenerateRequest{
		Prompt: text,
		Images: []domain.EncodedImage{photo},
		Preset: PresetBalanced,
	})
	if err != nil {
		return Empty[domain.EncodedImage](), err
	}

	img, ok := result.Get()
	if !ok {
		s.logger.Warn("Card synthesis returned no image", zap.String("object_name", recognition.ObjectName))
		return Empty[domain.EncodedImage](), nil
	}

	fields := []zap.Field{
		zap.String("object_name", recognition.ObjectName),
		zap.String("mime", img.MIMEType),
		zap.Int("bytes", len(img.Data)),
	}
	if metadata != nil {
		fields = append(fields, zap.String("model", metadata.Model))
	}
	s.logger.Info("Card image synthesized", fields...)

	return Ok(img), nil
}
