package auth

import (
	"testing"
	"time"

	apperrors "github.com/kapu/pec-ai-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Generate("user-1")
	require.NoError(t, err)

	p, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokens("secret", time.Hour).Generate("user-1")
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthenticated))
}

func TestParseRejectsExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	raw, err := tokens.Generate("user-1")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = tokens.Parse(raw)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthenticated))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewTokens("secret", time.Hour).Parse("not-a-token")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthenticated))
}

func TestGenerateRequiresUserID(t *testing.T) {
	_, err := NewTokens("secret", time.Hour).Generate("  ")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
}
