package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatchingByCode(t *testing.T) {
	err := NewRecognitionError("could not identify object", stderrors.New("empty response"))

	assert.True(t, Is(err, ErrRecognitionFailed))
	assert.False(t, Is(err, ErrSynthesisFailed))

	wrapped := fmt.Errorf("generate card: %w", err)
	assert.True(t, Is(wrapped, ErrRecognitionFailed))
}

func TestWrapperTypesReachEmbeddedAppError(t *testing.T) {
	cause := stderrors.New("bucket unreachable")
	err := NewStorageError("upload failed", "put", "user/1.png", cause)

	assert.True(t, Is(err, ErrStorageFailed))
	assert.True(t, Is(err, cause))
	assert.Equal(t, 500, StatusCode(err))
	assert.Equal(t, CodeStorage, CodeOf(err))

	var storageErr *StorageError
	require.True(t, As(err, &storageErr))
	assert.Equal(t, "put", storageErr.Operation)
}

func TestValidationErrorCarriesField(t *testing.T) {
	err := NewValidationError("name is required", "name", "  ")

	assert.True(t, Is(err, ErrValidationFailed))
	assert.Equal(t, 400, StatusCode(err))
	assert.Equal(t, "name", err.Field)
	assert.Equal(t, "name is required", err.Error())
}

func TestStatusCodeDefaultsForForeignErrors(t *testing.T) {
	assert.Equal(t, 500, StatusCode(stderrors.New("boom")))
	assert.Equal(t, "", CodeOf(stderrors.New("boom")))
	assert.Equal(t, 401, StatusCode(NewUnauthenticatedError("missing token")))
}
