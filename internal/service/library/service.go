package library

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// CardRepository is the principal-scoped card table.
type CardRepository interface {
	Create(ctx context.Context, userID string, card domain.NewCard) (*domain.Card, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Card, error)
	FindByID(ctx context.Context, userID, id string) (*domain.Card, error)
	Update(ctx context.Context, userID, id string, update domain.CardUpdate) (*domain.Card, error)
	ToggleFavorite(ctx context.Context, userID, id string) (bool, bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// ImageStore uploads and releases card images.
type ImageStore interface {
	Upload(ctx context.Context, userID string, img domain.EncodedImage, dest domain.ImageDestination) (string, error)
	Remove(ctx context.Context, imageURL string, dest domain.ImageDestination) error
}

// ListCache memoizes GetCardsForPrincipal between mutations.
type ListCache interface {
	Get(ctx context.Context, userID string) ([]*domain.Card, bool)
	Set(ctx context.Context, userID string, cards []*domain.Card)
	Invalidate(ctx context.Context, userID string)
}

// DeleteListener is told about every card removed from a library.
type DeleteListener func(ctx context.Context, userID, cardID string)

// Service is the persistence adapter for cards. Every method requires a
// principal in ctx.
type Service struct {
	cards  CardRepository
	images ImageStore
	cache  ListCache
	logger *zap.Logger

	mu        sync.RWMutex
	listeners []DeleteListener
}

func NewService(cards CardRepository, images ImageStore, cache ListCache, logger *zap.Logger) *Service {
	return &Service{
		cards:  cards,
		images: images,
		cache:  cache,
		logger: logger,
	}
}

// OnDelete registers fn to run after each successful card delete.
func (s *Service) OnDelete(fn DeleteListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func principal(ctx context.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.Principal{}, errors.NewUnauthenticatedError("authentication required")
	}
	return p, nil
}

func (s *Service) Upload(ctx context.Context, img domain.EncodedImage, dest domain.ImageDestination) (string, error) {
	p, err := principal(ctx)
	if err != nil {
		return "", err
	}
	return s.images.Upload(ctx, p.UserID, img, dest)
}

func (s *Service) CreateCardRecord(ctx context.Context, card domain.NewCard) (*domain.Card, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	name, category, err := domain.NormalizeCardFields(card.Name, card.Category)
	if err != nil {
		return nil, err
	}
	if card.ImageURL == "" {
		return nil, errors.NewValidationError("card image is required", "imageURL", "")
	}

	created, err := s.cards.Create(ctx, p.UserID, domain.NewCard{Name: name, Category: category, ImageURL: card.ImageURL})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.UserID)

	s.logger.Info("Card created",
		zap.String("user_id", p.UserID),
		zap.String("card_id", created.ID),
		zap.String("category", created.Category),
	)
	return created, nil
}

// GetCardsForPrincipal lists the library, most recent first.
func (s *Service) GetCardsForPrincipal(ctx context.Context) ([]*domain.Card, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cards, ok := s.cache.Get(ctx, p.UserID); ok {
			return cards, nil
		}
	}

	cards, err := s.cards.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, p.UserID, cards)
	}
	return cards, nil
}

// GetCard returns one card of the principal's library.
func (s *Service) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, errors.NewNotFoundError("card not found", "card", id)
	}

	card, err := s.cards.FindByID(ctx, p.UserID, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card not found", "card", id)
	}
	return card, nil
}

// Categories returns "all" followed by the distinct categories in library order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cards, err := s.GetCardsForPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Categories(cards), nil
}

// CardsByCategory filters the library; "all" or "" matches every card.
func (s *Service) CardsByCategory(ctx context.Context, category string) ([]*domain.Card, error) {
	cards, err := s.GetCardsForPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterByCategory(cards, category), nil
}

func (s *Service) Favorites(ctx context.Context) ([]*domain.Card, error) {
	cards, err := s.GetCardsForPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Favorites(cards), nil
}

func (s *Service) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	p, err := principal(ctx)
	if err != nil {
		return false, err
	}
	if !validID(id) {
		return false, errors.NewNotFoundError("card not found", "card", id)
	}

	favorite, found, err := s.cards.ToggleFavorite(ctx, p.UserID, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, errors.NewNotFoundError("card not found", "card", id)
	}
	s.invalidate(ctx, p.UserID)
	return favorite, nil
}

// UpdateCard edits name and category. The id never changes.
func (s *Service) UpdateCard(ctx context.Context, id string, update domain.CardUpdate) (*domain.Card, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	name, category, err := domain.NormalizeCardFields(update.Name, update.Category)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, errors.NewNotFoundError("card not found", "card", id)
	}

	card, err := s.cards.Update(ctx, p.UserID, id, domain.CardUpdate{Name: name, Category: category})
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card not found", "card", id)
	}
	s.invalidate(ctx, p.UserID)
	return card, nil
}

// DeleteCardRecord releases the stored image, then removes the row. When the
// image cannot be removed the row is kept.
func (s *Service) DeleteCardRecord(ctx context.Context, id string) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	return s.deleteCard(ctx, p.UserID, id)
}

func (s *Service) deleteCard(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return errors.NewNotFoundError("card not found", "card", id)
	}

	card, err := s.cards.FindByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if card == nil {
		return errors.NewNotFoundError("card not found", "card", id)
	}

	if card.ImageURL != "" {
		if err := s.images.Remove(ctx, card.ImageURL, domain.DestinationCards); err != nil {
			s.logger.Error("Failed to release card image",
				zap.String("card_id", id),
				zap.String("image_url", card.ImageURL),
				zap.Error(err),
			)
			return err
		}
	}

	deleted, err := s.cards.Delete(ctx, userID, id)
	if err != nil {
		s.logger.Error("Card image released but record delete failed",
			zap.String("card_id", id),
			zap.Error(err),
		)
		return err
	}
	s.invalidate(ctx, userID)
	if !deleted {
		return errors.NewNotFoundError("card not found", "card", id)
	}

	s.notifyDeleted(ctx, userID, id)
	s.logger.Info("Card deleted", zap.String("user_id", userID), zap.String("card_id", id))
	return nil
}

// BulkDeleteResult lists which ids were removed and why the rest were not.
type BulkDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// DeleteMany runs single deletes through a bounded worker pool.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (*BulkDeleteResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkDeleteResult{Deleted: []string{}, Failed: map[string]string{}}
	var mu sync.Mutex

	workers := pool.New().WithMaxGoroutines(constants.PhraseConfig.BulkDeleteWorkers)
	for _, id := range uniqueIDs(ids) {
		workers.Go(func() {
			err := s.deleteCard(ctx, p.UserID, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				code := errors.CodeOf(err)
				if code == "" {
					code = "INTERNAL_ERROR"
				}
				result.Failed[id] = code
				return
			}
			result.Deleted = append(result.Deleted, id)
		})
	}
	workers.Wait()

	s.logger.Info("Bulk delete finished",
		zap.String("user_id", p.UserID),
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Service) notifyDeleted(ctx context.Context, userID, cardID string) {
	s.mu.RLock()
	listeners := append([]DeleteListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, userID, cardID)
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
