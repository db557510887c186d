package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/database"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

type PhraseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPhraseRepository(postgres *database.PostgresService, logger *zap.Logger) *PhraseRepository {
	return &PhraseRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// Create stores the phrase text together with a snapshot of its items.
func (r *PhraseRepository) Create(ctx context.Context, userID, phraseText string, items []domain.PhraseItem) (*domain.SavedPhrase, error) {
	if items == nil {
		items = []domain.PhraseItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to encode phrase items", "saved_phrases", "insert", err)
	}

	query := `
		INSERT INTO saved_phrases (user_id, phrase_text, phrase_data)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, phrase_text, phrase_data, created_at
	`

	phrase, err := r.scanPhrase(r.db.QueryRowContext(ctx, query, userID, phraseText, string(itemsJSON)))
	if err != nil {
		r.logger.Error("Failed to insert saved phrase", zap.String("user_id", userID), zap.Error(err))
		return nil, errors.NewPersistenceError("failed to save phrase", "saved_phrases", "insert", err)
	}
	return phrase, nil
}

// ListRecent returns at most limit phrases, newest first.
func (r *PhraseRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*domain.SavedPhrase, error) {
	query := `
		SELECT id, user_id, phrase_text, phrase_data, created_at
		FROM saved_phrases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list phrases", "saved_phrases", "select", err)
	}
	defer rows.Close()

	phrases, err := collectRows(rows, r.scanPhrase)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list phrases", "saved_phrases", "select", err)
	}
	return phrases, nil
}

// Delete reports whether a row was removed.
func (r *PhraseRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_phrases WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, errors.NewPersistenceError("failed to delete phrase", "saved_phrases", "delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewPersistenceError("failed to delete phrase", "saved_phrases", "delete", err)
	}
	return affected > 0, nil
}

func (r *PhraseRepository) scanPhrase(row rowScanner) (*domain.SavedPhrase, error) {
	var (
		phrase    domain.SavedPhrase
		itemsJSON []byte
	)
	if err := row.Scan(&phrase.ID, &phrase.UserID, &phrase.PhraseText, &itemsJSON, &phrase.CreatedAt); err != nil {
		return nil, err
	}

	phrase.Items = []domain.PhraseItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &phrase.Items); err != nil {
			r.logger.Warn("Failed to decode phrase items",
				zap.String("phrase_id", phrase.ID),
				zap.Error(err),
			)
		}
	}
	return &phrase, nil
}
