package phrase

import (
	"context"

	"github.com/google/uuid"
	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

// PhraseRepository is the principal-scoped saved_phrases table.
type PhraseRepository interface {
	Create(ctx context.Context, userID, phraseText string, items []domain.PhraseItem) (*domain.SavedPhrase, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*domain.SavedPhrase, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// History keeps the phrases a principal has spoken.
type History struct {
	repo      PhraseRepository
	delimiter string
	limit     int
	logger    *zap.Logger
}

func NewHistory(repo PhraseRepository, delimiter string, logger *zap.Logger) *History {
	if delimiter == "" {
		delimiter = " "
	}
	return &History{
		repo:      repo,
		delimiter: delimiter,
		limit:     constants.PhraseConfig.HistoryLimit,
		logger:    logger,
	}
}

func (h *History) SavePhrase(ctx context.Context, items []domain.PhraseItem) (*domain.SavedPhrase, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, errors.NewUnauthenticatedError("authentication required")
	}

	text := domain.JoinLabels(items, h.delimiter)
	if text == "" {
		return nil, errors.NewValidationError("phrase is empty", "items", len(items))
	}

	saved, err := h.repo.Create(ctx, p.UserID, text, items)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("Phrase saved", zap.String("user_id", p.UserID), zap.String("phrase_id", saved.ID))
	return saved, nil
}

// ListSavedPhrases returns the most recent phrases, newest first.
func (h *History) ListSavedPhrases(ctx context.Context) ([]*domain.SavedPhrase, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, errors.NewUnauthenticatedError("authentication required")
	}
	return h.repo.ListRecent(ctx, p.UserID, h.limit)
}

func (h *History) DeletePhrase(ctx context.Context, id string) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return errors.NewUnauthenticatedError("authentication required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewNotFoundError("phrase not found", "phrase", id)
	}

	deleted, err := h.repo.Delete(ctx, p.UserID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.NewNotFoundError("phrase not found", "phrase", id)
	}
	return nil
}
