package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kapu/pec-ai-go/internal/auth"
	"github.com/kapu/pec-ai-go/internal/config"
	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/prompt"
	"github.com/kapu/pec-ai-go/internal/server"
	"github.com/kapu/pec-ai-go/internal/service/ai"
	"github.com/kapu/pec-ai-go/internal/service/cache"
	"github.com/kapu/pec-ai-go/internal/service/cardgen"
	"github.com/kapu/pec-ai-go/internal/service/database"
	"github.com/kapu/pec-ai-go/internal/service/library"
	"github.com/kapu/pec-ai-go/internal/service/phrase"
	"github.com/kapu/pec-ai-go/internal/service/repository"
	"github.com/kapu/pec-ai-go/internal/service/settings"
	"github.com/kapu/pec-ai-go/internal/service/storage"
	"go.uber.org/zap"
)

// AIStack is the model-backed part of the graph. The CLI builds it alone.
type AIStack struct {
	Models      *ai.ModelManager
	Recognizer  *ai.ObjectRecognizer
	Synthesizer *ai.ImageCardSynthesizer
	Voice       *ai.GeminiVoice
	Generator   *cardgen.Generator
}

// BuildAI wires the model manager and everything that only needs it.
func BuildAI(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AIStack, error) {
	models, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:       cfg.Gemini.APIKey,
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		DefaultGeminiModel: cfg.Gemini.VisionModel,
		ImageGeminiModel:   cfg.Gemini.ImageModel,
		DefaultOpenAIModel: cfg.OpenAI.Model,
		EnableFallback:     cfg.OpenAI.EnableFallback,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	prompts := prompt.NewPromptBuilder()
	recognizer := ai.NewObjectRecognizer(models, prompts, logger)
	synthesizer := ai.NewImageCardSynthesizer(models, prompts, logger)

	return &AIStack{
		Models:      models,
		Recognizer:  recognizer,
		Synthesizer: synthesizer,
		Voice:       ai.NewGeminiVoice(models.GetGeminiClient(), cfg.Gemini.SpeechModel, logger),
		Generator: cardgen.NewGenerator(recognizer, synthesizer, cardgen.GeneratorConfig{
			DefaultLanguage: cfg.Speech.DefaultLanguage,
			MaxImageBytes:   int(cfg.Storage.MaxImageBytes),
		}, logger),
	}, nil
}

// Container bundles the assembled services behind the HTTP API.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	AI       *AIStack
	Library  *library.Service
	Sessions *phrase.Sessions
	Tokens   *auth.Tokens

	router  http.Handler
	closers []func()
}

// Build assembles all infrastructure services. All heavy-weight
// initialization (DB/cache/storage/AI) happens here so the server stays
// focused on request handling.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Cache and database
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	closers = append(closers, func() {
		_ = cacheSvc.Close()
	})
	if err := cacheSvc.WaitUntilReady(ctx, constants.RedisConfig.ReadyTimeout); err != nil {
		logger.Warn("Redis not ready, continuing without warm cache", zap.Error(err))
	}

	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		SSLMode:  cfg.Postgres.SSLMode,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	if err := postgresSvc.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Object storage
	objects, err := storage.NewObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	publicURL := cfg.Storage.PublicURL
	if publicURL == "" {
		publicURL = storage.DefaultPublicURL(cfg.Storage)
	}
	uploader := storage.NewUploader(objects, storage.UploaderConfig{
		PublicURL:    publicURL,
		CardBucket:   cfg.Storage.CardBucket,
		AvatarBucket: cfg.Storage.AvatarBucket,
		MaxBytes:     int(cfg.Storage.MaxImageBytes),
	}, logger)
	if err := uploader.EnsureBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare buckets: %w", err)
	}

	// AI stack
	aiStack, err := BuildAI(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Card library
	cardRepo := repository.NewCardRepository(postgresSvc, logger)
	listCache := cache.NewCardListCache(cacheSvc, constants.CacheTTL.CardList, logger)
	librarySvc := library.NewService(cardRepo, uploader, listCache, logger)
	manual := cardgen.NewManualCreator(librarySvc, int(cfg.Storage.MaxImageBytes), logger)

	// Phrase assembly
	speechDefaults := domain.SpeechSettings{
		VoiceID:  cfg.Speech.DefaultVoice,
		Language: cfg.Speech.DefaultLanguage,
	}
	sessions := phrase.NewSessions(cfg.Speech.Delimiter)
	librarySvc.OnDelete(func(_ context.Context, userID, cardID string) {
		if removed := sessions.RemoveCardEverywhere(userID, cardID); removed > 0 {
			logger.Debug("Removed deleted card from phrases",
				zap.String("card_id", cardID),
				zap.Int("items", removed),
			)
		}
	})

	history := phrase.NewHistory(repository.NewPhraseRepository(postgresSvc, logger), cfg.Speech.Delimiter, logger)
	speechSettings := settings.NewRedisStore(cacheSvc, speechDefaults, logger)
	speaker := phrase.NewSpeaker(aiStack.Voice, speechSettings, speechDefaults, history, logger)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router := server.NewRouter(server.Dependencies{
		Tokens:         tokens,
		Generator:      aiStack.Generator,
		Manual:         manual,
		Library:        librarySvc,
		Sessions:       sessions,
		Speaker:        speaker,
		History:        history,
		Settings:       speechSettings,
		Health:         aiStack.Models,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxImageBytes:  cfg.Storage.MaxImageBytes,
		Logger:         logger,
	})

	return &Container{
		Config:   cfg,
		Logger:   logger,
		AI:       aiStack,
		Library:  librarySvc,
		Sessions: sessions,
		Tokens:   tokens,
		router:   router,
		closers:  closers,
	}, nil
}

// NewServer returns the HTTP server for the pre-built router.
func (c *Container) NewServer() (*server.Server, error) {
	if c == nil || c.router == nil {
		return nil, fmt.Errorf("router not initialized")
	}
	return server.NewServer(c.Config.Server, c.router, c.Logger), nil
}

// RunSessionSweeper drops idle phrase sessions until ctx is done.
func (c *Container) RunSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(constants.PhraseConfig.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := c.Sessions.Sweep(constants.PhraseConfig.SessionIdleTimeout); dropped > 0 {
				c.Logger.Debug("Idle phrase sessions dropped", zap.Int("count", dropped))
			}
		}
	}
}

// Close releases infrastructure in reverse construction order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
