package settings

import (
	"context"
	"strings"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/cache"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

// Store persists the speech settings of the principal in ctx.
type Store interface {
	Load(ctx context.Context) (domain.SpeechSettings, error)
	Save(ctx context.Context, value domain.SpeechSettings) error
}

// RedisStore keeps settings as JSON in Redis; blank fields fall back to defaults.
type RedisStore struct {
	store    cache.JSONStore
	defaults domain.SpeechSettings
	logger   *zap.Logger
}

func NewRedisStore(store cache.JSONStore, defaults domain.SpeechSettings, logger *zap.Logger) *RedisStore {
	return &RedisStore{store: store, defaults: defaults, logger: logger}
}

func speechKey(userID string) string {
	return "pec:settings:speech:" + userID
}

func (s *RedisStore) Load(ctx context.Context) (domain.SpeechSettings, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.SpeechSettings{}, errors.NewUnauthenticatedError("sign in to load settings")
	}

	var stored domain.SpeechSettings
	if _, err := s.store.Get(ctx, speechKey(principal.UserID), &stored); err != nil {
		s.logger.Warn("Speech settings unavailable, using defaults",
			zap.String("user_id", principal.UserID),
			zap.Error(err),
		)
		return s.defaults, nil
	}
	return stored.WithDefaults(s.defaults), nil
}

func (s *RedisStore) Save(ctx context.Context, value domain.SpeechSettings) error {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return errors.NewUnauthenticatedError("sign in to save settings")
	}

	value.VoiceID = strings.TrimSpace(value.VoiceID)
	value.Language = strings.TrimSpace(value.Language)
	value = value.WithDefaults(s.defaults)

	if err := s.store.Set(ctx, speechKey(principal.UserID), value, constants.CacheTTL.SpeechSettings); err != nil {
		return err
	}
	s.logger.Debug("Speech settings saved",
		zap.String("user_id", principal.UserID),
		zap.String("voice", value.VoiceID),
		zap.String("language", value.Language),
	)
	return nil
}
