package repository

import (
	"context"
	"database/sql"

	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/database"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

const cardColumns = `id, user_id, name, category, image_url, is_favorite, created_at, updated_at`

type CardRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCardRepository(postgres *database.PostgresService, logger *zap.Logger) *CardRepository {
	return &CardRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowIterator interface {
	rowScanner
	Next() bool
	Err() error
}

// collectRows scans every row. The first scan error aborts the listing.
func collectRows[T any](rows rowIterator, scan func(rowScanner) (T, error)) ([]T, error) {
	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	if err := row.Scan(
		&card.ID, &card.UserID, &card.Name, &card.Category, &card.ImageURL,
		&card.IsFavorite, &card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &card, nil
}

// Create inserts a card; Postgres assigns id and timestamps.
func (r *CardRepository) Create(ctx context.Context, userID string, card domain.NewCard) (*domain.Card, error) {
	query := `
		INSERT INTO cards (user_id, name, category, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + cardColumns

	created, err := scanCard(r.db.QueryRowContext(ctx, query, userID, card.Name, card.Category, card.ImageURL))
	if err != nil {
		r.logger.Error("Failed to insert card", zap.String("user_id", userID), zap.Error(err))
		return nil, errors.NewPersistenceError("failed to create card", "cards", "insert", err)
	}
	return created, nil
}

// ListByUser returns the principal's cards, most recent first.
func (r *CardRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list cards", "cards", "select", err)
	}
	defer rows.Close()

	cards, err := collectRows(rows, scanCard)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list cards", "cards", "select", err)
	}
	return cards, nil
}

// FindByID returns nil when the card does not exist for userID.
func (r *CardRepository) FindByID(ctx context.Context, userID, id string) (*domain.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE id = $1 AND user_id = $2
	`

	card, err := scanCard(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistenceError("failed to load card", "cards", "select", err)
	}
	return card, nil
}

// Update changes name and category; returns nil when nothing matched.
func (r *CardRepository) Update(ctx context.Context, userID, id string, update domain.CardUpdate) (*domain.Card, error) {
	query := `
		UPDATE cards
		SET name = $3, category = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + cardColumns

	card, err := scanCard(r.db.QueryRowContext(ctx, query, id, userID, update.Name, update.Category))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistenceError("failed to update card", "cards", "update", err)
	}
	return card, nil
}

// ToggleFavorite flips the flag; found is false when nothing matched.
func (r *CardRepository) ToggleFavorite(ctx context.Context, userID, id string) (favorite bool, found bool, err error) {
	query := `
		UPDATE cards
		SET is_favorite = NOT is_favorite, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING is_favorite
	`

	err = r.db.QueryRowContext(ctx, query, id, userID).Scan(&favorite)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.NewPersistenceError("failed to toggle favorite", "cards", "update", err)
	}
	return favorite, true, nil
}

// Delete reports whether a row was removed.
func (r *CardRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, errors.NewPersistenceError("failed to delete card", "cards", "delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewPersistenceError("failed to delete card", "cards", "delete", err)
	}
	return affected > 0, nil
}
