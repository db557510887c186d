package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kapu/pec-ai-go/internal/config"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/cardgen"
	"github.com/kapu/pec-ai-go/internal/service/library"
	"github.com/kapu/pec-ai-go/internal/service/phrase"
	"go.uber.org/zap"
)

// TokenParser resolves a bearer token to its principal.
type TokenParser interface {
	Parse(token string) (domain.Principal, error)
}

type CardGenerator interface {
	GenerateCard(ctx context.Context, photo domain.EncodedImage, language string) (*domain.CardDraft, error)
}

type ManualCards interface {
	CreateManualCard(ctx context.Context, image domain.EncodedImage, name, category string) (*domain.Card, error)
	SaveDraft(ctx context.Context, draft *domain.CardDraft) (*domain.Card, error)
}

type Library interface {
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	GetCardsForPrincipal(ctx context.Context) ([]*domain.Card, error)
	Categories(ctx context.Context) ([]string, error)
	CardsByCategory(ctx context.Context, category string) ([]*domain.Card, error)
	Favorites(ctx context.Context) ([]*domain.Card, error)
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	UpdateCard(ctx context.Context, id string, update domain.CardUpdate) (*domain.Card, error)
	DeleteCardRecord(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (*library.BulkDeleteResult, error)
}

type PhraseSpeaker interface {
	Speak(ctx context.Context, session *phrase.Session) (*phrase.SpeakResult, error)
}

type PhraseHistory interface {
	ListSavedPhrases(ctx context.Context) ([]*domain.SavedPhrase, error)
	DeletePhrase(ctx context.Context, id string) error
}

type SpeechSettings interface {
	Load(ctx context.Context) (domain.SpeechSettings, error)
	Save(ctx context.Context, value domain.SpeechSettings) error
}

// HealthChecker reports reachability per AI provider.
type HealthChecker interface {
	Ping(ctx context.Context) map[string]bool
}

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Tokens    TokenParser
	Generator CardGenerator
	Manual    ManualCards
	Library   Library
	Sessions  *phrase.Sessions
	Speaker   PhraseSpeaker
	History   PhraseHistory
	Settings  SpeechSettings
	Health    HealthChecker

	AllowedOrigins []string
	MaxImageBytes  int64
	Logger         *zap.Logger
}

var (
	_ CardGenerator = (*cardgen.Generator)(nil)
	_ ManualCards   = (*cardgen.ManualCreator)(nil)
	_ Library       = (*library.Service)(nil)
	_ PhraseSpeaker = (*phrase.Speaker)(nil)
	_ PhraseHistory = (*phrase.History)(nil)
)

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{deps: deps, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", h.handleHealth)
	router.GET("/health/ai", h.handleAIHealth)

	api := router.Group("/api")
	api.Use(requirePrincipal(deps.Tokens))

	cards := api.Group("/cards")
	cards.GET("", h.handleListCards)
	cards.GET("/categories", h.handleCategories)
	cards.POST("/generate", h.handleGenerateCard)
	cards.POST("/manual", h.handleManualCard)
	cards.POST("/bulk-delete", h.handleBulkDelete)
	cards.PATCH("/:id", h.handleUpdateCard)
	cards.POST("/:id/favorite", h.handleToggleFavorite)
	cards.DELETE("/:id", h.handleDeleteCard)

	session := api.Group("/phrase/:session")
	session.GET("", h.handleGetPhrase)
	session.POST("/items/card", h.handleAddCardItem)
	session.POST("/items/text", h.handleAddTextItem)
	session.DELETE("/items/:id", h.handleRemoveItem)
	session.POST("/reorder", h.handleReorder)
	session.POST("/move", h.handleMove)
	session.POST("/clear", h.handleClear)
	session.POST("/speak", h.handleSpeak)

	phrases := api.Group("/phrases")
	phrases.GET("", h.handleListPhrases)
	phrases.DELETE("/:id", h.handleDeletePhrase)

	settings := api.Group("/settings")
	settings.GET("/speech", h.handleGetSpeechSettings)
	settings.PUT("/speech", h.handleSaveSpeechSettings)

	return router
}

// Server owns the listening http.Server.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(shutdownCtx)
}
