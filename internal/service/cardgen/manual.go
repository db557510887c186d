package cardgen

import (
	"context"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"go.uber.org/zap"
)

// CardStore is the persistence side the card paths write through.
type CardStore interface {
	Upload(ctx context.Context, img domain.EncodedImage, dest domain.ImageDestination) (string, error)
	CreateCardRecord(ctx context.Context, card domain.NewCard) (*domain.Card, error)
}

// ManualCreator builds cards from caller-supplied name and category without
// any AI call.
type ManualCreator struct {
	store         CardStore
	maxImageBytes int
	logger        *zap.Logger
}

func NewManualCreator(store CardStore, maxImageBytes int, logger *zap.Logger) *ManualCreator {
	if maxImageBytes <= 0 {
		maxImageBytes = constants.AIInputLimits.MaxImageBytes
	}
	return &ManualCreator{store: store, maxImageBytes: maxImageBytes, logger: logger}
}

// CreateManualCard validates everything before touching storage.
func (m *ManualCreator) CreateManualCard(ctx context.Context, image domain.EncodedImage, name, category string) (*domain.Card, error) {
	name, category, err := domain.NormalizeCardFields(name, category)
	if err != nil {
		return nil, err
	}
	if err := image.Validate(m.maxImageBytes); err != nil {
		return nil, err
	}

	card, err := persist(ctx, m.store, image, name, category)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Manual card created", zap.String("card_id", card.ID), zap.String("name", card.Name))
	return card, nil
}

// SaveDraft persists a generated draft the same way the manual path does.
func (m *ManualCreator) SaveDraft(ctx context.Context, draft *domain.CardDraft) (*domain.Card, error) {
	name, category, err := domain.NormalizeCardFields(draft.Name, draft.Category)
	if err != nil {
		return nil, err
	}

	card, err := persist(ctx, m.store, draft.CardImage, name, category)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Generated card saved", zap.String("card_id", card.ID), zap.String("name", card.Name))
	return card, nil
}

func persist(ctx context.Context, store CardStore, image domain.EncodedImage, name, category string) (*domain.Card, error) {
	url, err := store.Upload(ctx, image, domain.DestinationCards)
	if err != nil {
		return nil, err
	}
	return store.CreateCardRecord(ctx, domain.NewCard{
		Name:     name,
		Category: category,
		ImageURL: url,
	})
}
