package ai

import (
	"context"
	"errors"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/prompt"
	"github.com/kapu/pec-ai-go/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// jsonGenerator is the part of ModelManager the recognizer depends on.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, req GenerateRequest, dest any) (*GenerateMetadata, error)
}

// imageGenerator is the part of ModelManager the card synthesizer depends on.
type imageGenerator interface {
	GenerateImage(ctx context.Context, req GenerateRequest) (Result[domain.EncodedImage], *GenerateMetadata, error)
}

// Recognizer names the main object in a photo and assigns a category.
type Recognizer interface {
	Recognize(ctx context.Context, photo domain.EncodedImage, language string) (Result[domain.Recognition], error)
}

var recognitionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"objectName": {Type: genai.TypeString, Description: "Short common name of the main object"},
		"category":   {Type: genai.TypeString, Description: "Broad everyday category"},
	},
	Required:         []string{"objectName", "category"},
	PropertyOrdering: []string{"objectName", "category"},
}

type ObjectRecognizer struct {
	models  jsonGenerator
	prompts *prompt.PromptBuilder
	logger  *zap.Logger
}

func NewObjectRecognizer(models jsonGenerator, prompts *prompt.PromptBuilder, logger *zap.Logger) *ObjectRecognizer {
	if prompts == nil {
		prompts = prompt.DefaultPromptBuilder()
	}
	return &ObjectRecognizer{models: models, prompts: prompts, logger: logger}
}

// Recognize returns Empty when the model answered but named nothing usable.
func (r *ObjectRecognizer) Recognize(ctx context.Context, photo domain.EncodedImage, language string) (Result[domain.Recognition], error) {
	text, err := r.prompts.Render(prompt.TemplateRecognition, prompt.RecognitionData{Language: language})
	if err != nil {
		return Empty[domain.Recognition](), err
	}

	ctx, cancel := withTimeout(ctx, constants.AITimeouts.Recognition)
	defer cancel()

	var out domain.Recognition
	metadata, err := r.models.GenerateJSON(ctx, GenerateRequest{
		Prompt: text,
		Images: []domain.EncodedImage{photo},
		Preset: PresetPrecise,
		Options: &GenerateOptions{
			Schema: recognitionSchema,
		},
	}, &out)
	if errors.Is(err, ErrEmptyResponse) {
		r.logger.Warn("Recognition returned nothing usable", zap.Error(err))
		return Empty[domain.Recognition](), nil
	}
	if err != nil {
		return Empty[domain.Recognition](), err
	}

	out.ObjectName = util.CollapseSpaces(out.ObjectName)
	out.Category = util.CollapseSpaces(out.Category)
	if !out.Usable() {
		r.logger.Warn("Recognition returned blank fields",
			zap.String("object_name", out.ObjectName),
			zap.String("category", out.Category),
		)
		return Empty[domain.Recognition](), nil
	}

	fields := []zap.Field{
		zap.String("object_name", out.ObjectName),
		zap.String("category", out.Category),
	}
	if metadata != nil {
		fields = append(fields, zap.String("provider", metadata.Provider), zap.Bool("fallback", metadata.UsedFallback))
	}
	r.logger.Info("Object recognized", fields...)

	return Ok(out), nil
}
