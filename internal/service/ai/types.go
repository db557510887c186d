package ai

import (
	"github.com/kapu/pec-ai-go/internal/domain"
	"google.golang.org/genai"
)

// ModelPreset represents the model usage preset
type ModelPreset string

const (
	PresetCreative ModelPreset = "creative"
	PresetPrecise  ModelPreset = "precise"
	PresetBalanced ModelPreset = "balanced"
)

// ModelConfig holds model configuration
type ModelConfig struct {
	Temperature      float32
	TopP             float32
	TopK             int
	MaxOutputTokens  int
	ResponseMimeType string
}

// GenerateMetadata contains metadata about the generation
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
}

// GenerateOptions holds options for AI generation
type GenerateOptions struct {
	Model     string
	JSONMode  bool
	Overrides *ModelConfig
	// Schema constrains Gemini structured output. Other providers only get JSON mode.
	Schema *genai.Schema
}

// GenerateRequest is one multimodal prompt: instruction text plus inline images.
type GenerateRequest struct {
	Prompt  string
	Images  []domain.EncodedImage
	Preset  ModelPreset
	Options *GenerateOptions
}

// ProviderResult is the raw text a provider produced.
type ProviderResult struct {
	Text  string
	Model string
}

// GetPresetConfig returns the configuration for a preset
func GetPresetConfig(preset ModelPreset) ModelConfig {
	switch preset {
	case PresetCreative:
		return ModelConfig{
			Temperature:     0.7,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 2048,
		}
	case PresetPrecise:
		return ModelConfig{
			Temperature:     0.1,
			TopP:            0.9,
			TopK:            20,
			MaxOutputTokens: 512,
		}
	case PresetBalanced:
		return ModelConfig{
			Temperature:     0.4,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 1024,
		}
	default:
		return GetPresetConfig(PresetBalanced)
	}
}

func applyOverrides(config ModelConfig, opts *GenerateOptions) ModelConfig {
	if opts == nil || opts.Overrides == nil {
		return config
	}
	if opts.Overrides.Temperature > 0 {
		config.Temperature = opts.Overrides.Temperature
	}
	if opts.Overrides.TopP > 0 {
		config.TopP = opts.Overrides.TopP
	}
	if opts.Overrides.TopK > 0 {
		config.TopK = opts.Overrides.TopK
	}
	if opts.Overrides.MaxOutputTokens > 0 {
		config.MaxOutputTokens = opts.Overrides.MaxOutputTokens
	}
	return config
}
