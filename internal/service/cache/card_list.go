package cache

import (
	"context"
	"time"

	"github.com/kapu/pec-ai-go/internal/domain"
	"go.uber.org/zap"
)

// JSONStore is the subset of CacheService used by the typed caches.
type JSONStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// cachedCard keeps fields the public JSON form of domain.Card hides.
type cachedCard struct {
	domain.Card
	UserID string `json:"userId"`
}

// CardListCache holds each principal's library listing between mutations.
type CardListCache struct {
	store  JSONStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewCardListCache(store JSONStore, ttl time.Duration, logger *zap.Logger) *CardListCache {
	return &CardListCache{store: store, ttl: ttl, logger: logger}
}

func cardListKey(userID string) string {
	return "pec:cards:" + userID
}

// Get returns the cached listing; ok is false on a miss or cache failure.
func (c *CardListCache) Get(ctx context.Context, userID string) ([]*domain.Card, bool) {
	var cached []cachedCard
	found, err := c.store.Get(ctx, cardListKey(userID), &cached)
	if err != nil {
		c.logger.Warn("Card list cache read failed", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	cards := make([]*domain.Card, len(cached))
	for i := range cached {
		card := cached[i].Card
		card.UserID = cached[i].UserID
		cards[i] = &card
	}
	return cards, true
}

func (c *CardListCache) Set(ctx context.Context, userID string, cards []*domain.Card) {
	cached := make([]cachedCard, len(cards))
	for i, card := range cards {
		cached[i] = cachedCard{Card: *card, UserID: card.UserID}
	}
	if err := c.store.Set(ctx, cardListKey(userID), cached, c.ttl); err != nil {
		c.logger.Warn("Card list cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Invalidate drops the listing so the next read refetches from Postgres.
func (c *CardListCache) Invalidate(ctx context.Context, userID string) {
	if err := c.store.Del(ctx, cardListKey(userID)); err != nil {
		c.logger.Warn("Card list cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
