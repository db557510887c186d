package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrCircuitOpen is returned while the breaker rejects AI calls.
var ErrCircuitOpen = errors.New("ai: service temporarily unavailable")

var (
	httpStatusPattern = regexp.MustCompile(`\b(5\d{2})\b`)
	geminiCodePattern = regexp.MustCompile(`"code":\s*(\d{3})`)
	openaiCodePattern = regexp.MustCompile(`^(\d{3})\s`)
	rateLimitKeywords = []string{"429", "Rate limit", "RESOURCE_EXHAUSTED", "quota"}
	timeoutKeywords   = []string{"timeout", "ETIMEDOUT", "deadline exceeded"}
)

// imageProvider is the capability of producing an inline image.
type imageProvider interface {
	Name() string
	GenerateImage(ctx context.Context, req GenerateRequest) (domain.EncodedImage, string, error)
}

type ModelManager struct {
	gemini         *GeminiProvider
	openai         *OpenAIProvider
	primary        TextProvider
	fallback       TextProvider
	images         imageProvider
	logger         *zap.Logger
	enableFallback bool
	circuitBreaker *util.CircuitBreaker
}

type ModelManagerConfig struct {
	GeminiAPIKey       string
	OpenAIAPIKey       string
	DefaultGeminiModel string
	ImageGeminiModel   string
	DefaultOpenAIModel string
	EnableFallback     bool
}

func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	defaultGemini := cfg.DefaultGeminiModel
	if defaultGemini == "" {
		defaultGemini = "gemini-2.0-flash"
	}
	imageGemini := cfg.ImageGeminiModel
	if imageGemini == "" {
		imageGemini = "gemini-2.5-flash-image"
	}
	defaultOpenAI := cfg.DefaultOpenAIModel
	if defaultOpenAI == "" {
		defaultOpenAI = "gpt-4o-mini"
	}

	geminiProvider := NewGeminiProvider(geminiClient, defaultGemini, imageGemini, logger)

	openaiProvider := NewOpenAIProvider(cfg.OpenAIAPIKey, defaultOpenAI, logger)
	if openaiProvider != nil {
		logger.Info("OpenAI fallback enabled", zap.String("model", defaultOpenAI))
	} else {
		logger.Info("OpenAI fallback disabled (no API key)")
	}

	mm := &ModelManager{
		gemini:  geminiProvider,
		openai:  openaiProvider,
		primary: geminiProvider,
		images:  geminiProvider,
		logger:  logger,
	}
	mm.enableFallback = cfg.EnableFallback && openaiProvider != nil
	if mm.enableFallback {
		mm.fallback = openaiProvider
	}

	mm.circuitBreaker = util.NewCircuitBreaker(
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		constants.CircuitBreakerConfig.HealthCheckInterval,
		mm.healthCheckPing,
		logger,
	)

	return mm, nil
}

// newModelManagerWithProviders assembles a manager around arbitrary providers.
func newModelManagerWithProviders(primary, fallback TextProvider, images imageProvider, logger *zap.Logger) *ModelManager {
	mm := &ModelManager{
		primary:        primary,
		fallback:       fallback,
		images:         images,
		logger:         logger,
		enableFallback: fallback != nil,
	}
	mm.circuitBreaker = util.NewCircuitBreaker(
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		constants.CircuitBreakerConfig.HealthCheckInterval,
		nil,
		logger,
	)
	return mm
}

func (mm *ModelManager) GetGeminiClient() *genai.Client {
	if mm.gemini == nil {
		return nil
	}
	return mm.gemini.Client()
}

// GenerateJSON runs req on the primary provider, falling back when enabled,
// and decodes the JSON answer into dest. A blank or undecodable answer is
// reported as ErrEmptyResponse.
func (mm *ModelManager) GenerateJSON(ctx context.Context, req GenerateRequest, dest any) (*GenerateMetadata, error) {
	if err := mm.checkCircuit(); err != nil {
		return nil, err
	}

	var options GenerateOptions
	if req.Options != nil {
		options = *req.Options
	}
	options.JSONMode = true
	req.Options = &options

	primaryResult, primaryErr := mm.invokeProvider(ctx, mm.primary, req)
	if primaryErr == nil {
		mm.circuitBreaker.RecordSuccess()
		metadata := &GenerateMetadata{
			Provider: mm.primary.Name(),
			Model:    primaryResult.Model,
		}
		return mm.decodeJSON(primaryResult.Text, metadata, dest)
	}

	if mm.enableFallback && mm.fallback != nil && ctx.Err() == nil {
		fallbackResult, fallbackErr := mm.invokeProvider(ctx, mm.fallback, req)
		if fallbackErr == nil {
			mm.circuitBreaker.RecordSuccess()
			metadata := &GenerateMetadata{
				Provider:     mm.fallback.Name(),
				Model:        fallbackResult.Model,
				UsedFallback: true,
			}
			return mm.decodeJSON(fallbackResult.Text, metadata, dest)
		}

		mm.recordFailure(primaryErr)
		mm.recordFailure(fallbackErr)
		return nil, fmt.Errorf("primary: %v; fallback: %w", primaryErr, fallbackErr)
	}

	mm.recordFailure(primaryErr)
	return nil, primaryErr
}

// GenerateImage asks the image provider for one inline image. There is no
// fallback provider for image output.
func (mm *ModelManager) GenerateImage(ctx context.Context, req GenerateRequest) (Result[domain.EncodedImage], *GenerateMetadata, error) {
	if err := mm.checkCircuit(); err != nil {
		return Empty[domain.EncodedImage](), nil, err
	}
	if mm.images == nil {
		return Empty[domain.EncodedImage](), nil, fmt.Errorf("image provider is not configured")
	}

	img, model, err := mm.images.GenerateImage(ctx, req)
	metadata := &GenerateMetadata{Provider: mm.images.Name(), Model: model}
	if errors.Is(err, ErrEmptyResponse) {
		mm.circuitBreaker.RecordSuccess()
		return Empty[domain.EncodedImage](), metadata, nil
	}
	if err != nil {
		mm.recordFailure(err)
		return Empty[domain.EncodedImage](), metadata, err
	}

	mm.circuitBreaker.RecordSuccess()
	if img.IsEmpty() {
		return Empty[domain.EncodedImage](), metadata, nil
	}
	return Ok(img), metadata, nil
}

func (mm *ModelManager) checkCircuit() error {
	if mm.circuitBreaker.CanExecute() {
		return nil
	}

	status := mm.circuitBreaker.Status()
	fields := []zap.Field{
		zap.String("state", status.State.String()),
		zap.Int("failure_count", status.FailureCount),
	}
	if status.NextRetryTime != nil {
		fields = append(fields, zap.Time("next_retry", *status.NextRetryTime))
	}
	mm.logger.Error("AI service unavailable (Circuit OPEN)", fields...)
	return ErrCircuitOpen
}

func (mm *ModelManager) invokeProvider(ctx context.Context, provider TextProvider, req GenerateRequest) (ProviderResult, error) {
	if provider == nil {
		return ProviderResult{}, fmt.Errorf("model provider is not configured")
	}
	return provider.Generate(ctx, req)
}

func (mm *ModelManager) decodeJSON(text string, metadata *GenerateMetadata, dest any) (*GenerateMetadata, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return metadata, fmt.Errorf("%s returned blank JSON: %w", metadata.Provider, ErrEmptyResponse)
	}

	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		mm.logger.Error("Failed to unmarshal JSON response",
			zap.String("provider", metadata.Provider),
			zap.Error(err),
			zap.String("response_preview", util.Preview(cleaned, 200)),
		)
		return metadata, fmt.Errorf("invalid JSON from %s (%v): %w", metadata.Provider, err, ErrEmptyResponse)
	}

	return metadata, nil
}

func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```json"))
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}
	return cleaned
}

func (mm *ModelManager) recordFailure(err error) {
	if err == nil || !isServiceFailure(err) {
		return
	}

	timeout := constants.CircuitBreakerConfig.ResetTimeout
	if isRateLimitError(err) {
		timeout = constants.CircuitBreakerConfig.RateLimitTimeout
	}
	mm.circuitBreaker.RecordFailure(timeout)
}

// Ping reports per-provider health.
func (mm *ModelManager) Ping(ctx context.Context) map[string]bool {
	result := make(map[string]bool, 2)
	if mm.primary != nil {
		result[mm.primary.Name()] = mm.primary.Ping(ctx)
	}
	if mm.enableFallback && mm.fallback != nil {
		result[mm.fallback.Name()] = mm.fallback.Ping(ctx)
	}
	return result
}

func (mm *ModelManager) healthCheckPing() bool {
	ctx, cancel := context.WithTimeout(context.Background(), constants.CircuitBreakerConfig.HealthCheckTimeout)
	defer cancel()

	results := mm.Ping(ctx)
	healthy := false
	for _, ok := range results {
		healthy = healthy || ok
	}

	mm.logger.Info("Health Check: Result",
		zap.Any("providers", results),
		zap.Bool("healthy", healthy),
	)
	return healthy
}

func (mm *ModelManager) GetCircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.Status()
}

func (mm *ModelManager) ResetCircuit() {
	mm.circuitBreaker.Reset()
}

func isServiceFailure(err error) bool {
	if err == nil || errors.Is(err, ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	for _, keyword := range timeoutKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	if isRateLimitError(err) {
		return true
	}
	if httpStatusPattern.MatchString(msg) {
		return true
	}
	if code, ok := extractStatusCode(msg); ok {
		return code >= 500 && code < 600
	}
	return false
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	for _, keyword := range rateLimitKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	if code, ok := extractStatusCode(msg); ok {
		return code == 429
	}
	return false
}

func extractStatusCode(msg string) (int, bool) {
	for _, pattern := range []*regexp.Regexp{geminiCodePattern, openaiCodePattern} {
		if matches := pattern.FindStringSubmatch(msg); len(matches) > 1 {
			if code, err := strconv.Atoi(matches[1]); err == nil {
				return code, true
			}
		}
	}
	return 0, false
}

// withTimeout bounds ctx by d unless ctx already ends sooner.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
