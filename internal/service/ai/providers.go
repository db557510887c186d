package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// TextProvider generates text (usually JSON) from a multimodal prompt.
type TextProvider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

// GeminiProvider wraps the Gemini client with preset-aware generation logic.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	imageModel   string
	logger       *zap.Logger
}

func NewGeminiProvider(client *genai.Client, defaultModel, imageModel string, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		client:       client,
		defaultModel: defaultModel,
		imageModel:   imageModel,
		logger:       logger,
	}
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) DefaultModel() string {
	return g.defaultModel
}

func (g *GeminiProvider) Client() *genai.Client {
	return g.client
}

func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (ProviderResult, error) {
	if g.client == nil {
		return ProviderResult{}, fmt.Errorf("gemini client not initialized")
	}

	modelName := g.getModel(req.Options)
	config := applyOverrides(GetPresetConfig(req.Preset), req.Options)
	if req.Options != nil && req.Options.JSONMode {
		config.ResponseMimeType = "application/json"
	}

	g.logger.Debug("Generating with Gemini",
		zap.String("model", modelName),
		zap.String("preset", string(req.Preset)),
		zap.Int("images", len(req.Images)),
		zap.Bool("json_mode", config.ResponseMimeType != ""),
	)

	topK := float32(config.TopK)
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &config.Temperature,
		TopP:             &config.TopP,
		TopK:             &topK,
		MaxOutputTokens:  int32(config.MaxOutputTokens),
		ResponseMIMEType: config.ResponseMimeType,
	}
	if req.Options != nil && req.Options.Schema != nil {
		genConfig.ResponseSchema = req.Options.Schema
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelName, buildGeminiContents(req), genConfig)
	if err != nil {
		g.logger.Error("Gemini generation failed", zap.String("model", modelName), zap.Error(err))
		return ProviderResult{}, err
	}

	text := extractTextFromGeminiResponse(resp)
	if strings.TrimSpace(text) == "" {
		return ProviderResult{}, fmt.Errorf("gemini %s: %w", modelName, ErrEmptyResponse)
	}

	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return ProviderResult{Text: text, Model: modelName}, nil
}

// GenerateImage asks the image-capable model for an inline image part.
// A response without image data yields ErrEmptyResponse.
func (g *GeminiProvider) GenerateImage(ctx context.Context, req GenerateRequest) (domain.EncodedImage, string, error) {
	if g.client == nil {
		return domain.EncodedImage{}, "", fmt.Errorf("gemini client not initialized")
	}

	modelName := g.imageModel
	if req.Options != nil && req.Options.Model != "" {
		modelName = req.Options.Model
	}
	config := applyOverrides(GetPresetConfig(req.Preset), req.Options)

	g.logger.Debug("Generating image with Gemini",
		zap.String("model", modelName),
		zap.Int("images", len(req.Images)),
	)

	genConfig := &genai.GenerateContentConfig{
		Temperature:        &config.Temperature,
		TopP:               &config.TopP,
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelName, buildGeminiContents(req), genConfig)
	if err != nil {
		g.logger.Error("Gemini image generation failed", zap.String("model", modelName), zap.Error(err))
		return domain.EncodedImage{}, modelName, err
	}

	img, ok := extractImageFromGeminiResponse(resp)
	if !ok {
		g.logger.Warn("Gemini returned no image part",
			zap.String("model", modelName),
			zap.Int("text_length", len(extractTextFromGeminiResponse(resp))),
		)
		return domain.EncodedImage{}, modelName, fmt.Errorf("gemini %s: %w", modelName, ErrEmptyResponse)
	}

	g.logger.Debug("Gemini image received", zap.String("mime", img.MIMEType), zap.Int("bytes", len(img.Data)))
	return img, modelName, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) bool {
	if g.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 10,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: "ping"}}},
	}, config)
	if err != nil {
		g.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return extractTextFromGeminiResponse(resp) != ""
}

func (g *GeminiProvider) getModel(opts *GenerateOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return g.defaultModel
}

// OpenAIProvider wraps the OpenAI chat completion client. Used as the
// fallback for structured recognition only.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	logger       *zap.Logger
}

func NewOpenAIProvider(apiKey string, defaultModel string, logger *zap.Logger) *OpenAIProvider {
	if apiKey == "" {
		return nil
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:       &client,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, fmt.Errorf("OpenAI client not initialized")
	}

	modelName := o.defaultModel
	if req.Options != nil && req.Options.Model != "" && strings.HasPrefix(req.Options.Model, "gpt-") {
		modelName = req.Options.Model
	}
	config := applyOverrides(GetPresetConfig(req.Preset), req.Options)

	o.logger.Info("Fallback: Generating with OpenAI",
		zap.String("model", modelName),
		zap.String("preset", string(req.Preset)),
		zap.Int("images", len(req.Images)),
	)

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
	parts = append(parts, openai.TextContentPart(req.Prompt))
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURI(),
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.Options != nil && req.Options.JSONMode {
		messages = append(messages, openai.SystemMessage("You must respond with valid JSON only. Do not include any text outside the JSON object."))
	}
	messages = append(messages, openai.UserMessage(parts))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(modelName),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(config.MaxOutputTokens)),
	}
	if !strings.HasPrefix(modelName, "gpt-5") {
		params.Temperature = openai.Float(float64(config.Temperature))
		params.TopP = openai.Float(float64(config.TopP))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.logger.Error("OpenAI generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ProviderResult{}, fmt.Errorf("openai %s: %w", modelName, ErrEmptyResponse)
	}

	text := resp.Choices[0].Message.Content
	o.logger.Info("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ProviderResult{Text: text, Model: modelName}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.defaultModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		o.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}

func buildGeminiContents(req GenerateRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})
	return []*genai.Content{{Role: "user", Parts: parts}}
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}

// extractInlineData returns the first inline blob whose MIME type has prefix.
func extractInlineData(resp *genai.GenerateContentResponse, prefix string) (*genai.Blob, bool) {
	if resp == nil {
		return nil, false
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if strings.HasPrefix(strings.ToLower(part.InlineData.MIMEType), prefix) {
				return part.InlineData, true
			}
		}
	}
	return nil, false
}

func extractImageFromGeminiResponse(resp *genai.GenerateContentResponse) (domain.EncodedImage, bool) {
	blob, ok := extractInlineData(resp, "image/")
	if !ok {
		return domain.EncodedImage{}, false
	}
	return domain.NewEncodedImage(blob.Data, blob.MIMEType), true
}
