package cardgen

import (
	"context"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/ai"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

// Generator runs recognition then synthesis for one photo. It has no side
// effects besides the two AI calls; persisting the draft is up to the caller.
type Generator struct {
	recognizer      ai.Recognizer
	synthesizer     ai.CardSynthesizer
	defaultLanguage string
	maxImageBytes   int
	logger          *zap.Logger
}

type GeneratorConfig struct {
	DefaultLanguage string
	MaxImageBytes   int
}

func NewGenerator(recognizer ai.Recognizer, synthesizer ai.CardSynthesizer, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "pt-BR"
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = constants.AIInputLimits.MaxImageBytes
	}
	return &Generator{
		recognizer:      recognizer,
		synthesizer:     synthesizer,
		defaultLanguage: cfg.DefaultLanguage,
		maxImageBytes:   cfg.MaxImageBytes,
		logger:          logger,
	}
}

// GenerateCard fails with ErrRecognitionFailed or ErrSynthesisFailed. On
// success name and category are exactly what recognition returned.
func (g *Generator) GenerateCard(ctx context.Context, photo domain.EncodedImage, language string) (*domain.CardDraft, error) {
	if err := photo.Validate(g.maxImageBytes); err != nil {
		return nil, err
	}
	if language == "" {
		language = g.defaultLanguage
	}

	recognized, err := g.recognizer.Recognize(ctx, photo, language)
	if err != nil {
		g.logger.Warn("Recognition step failed", zap.Error(err))
		return nil, errors.NewRecognitionError("could not identify object", err)
	}
	recognition, ok := recognized.Get()
	if !ok {
		return nil, errors.NewRecognitionError("could not identify object", nil)
	}

	synthesized, err := g.synthesizer.Synthesize(ctx, photo, recognition, language)
	if err != nil {
		g.logger.Warn("Synthesis step failed",
			zap.String("object_name", recognition.ObjectName),
			zap.Error(err),
		)
		return nil, errors.NewSynthesisError("could not generate card", err, synthesisContext(recognition))
	}
	cardImage, ok := synthesized.Get()
	if !ok || cardImage.IsEmpty() {
		return nil, errors.NewSynthesisError("could not generate card", nil, synthesisContext(recognition))
	}

	g.logger.Info("Card generated",
		zap.String("object_name", recognition.ObjectName),
		zap.String("category", recognition.Category),
		zap.String("language", language),
		zap.Int("image_bytes", len(cardImage.Data)),
	)

	return &domain.CardDraft{
		Name:      recognition.ObjectName,
		Category:  recognition.Category,
		CardImage: cardImage,
	}, nil
}

func synthesisContext(r domain.Recognition) map[string]any {
	return map[string]any{
		"objectName": r.ObjectName,
		"category":   r.Category,
	}
}
