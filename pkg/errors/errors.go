package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeRecognitionFailed = "RECOGNITION_FAILED"
	CodeSynthesisFailed   = "SYNTHESIS_FAILED"
	CodeValidation        = "VALIDATION_FAILED"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeStorage           = "STORAGE_FAILED"
	CodePersistence       = "PERSISTENCE_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadySpeaking   = "ALREADY_SPEAKING"
	CodeCache             = "CACHE_ERROR"
	CodeAPIError          = "API_ERROR"
)

// Sentinels for errors.Is. Matching is by code, so any AppError carrying the
// same code (with its own message and cause) satisfies errors.Is.
var (
	ErrRecognitionFailed = &AppError{Message: "could not identify object", Code: CodeRecognitionFailed, StatusCode: 502}
	ErrSynthesisFailed   = &AppError{Message: "could not generate card image", Code: CodeSynthesisFailed, StatusCode: 502}
	ErrValidationFailed  = &AppError{Message: "validation failed", Code: CodeValidation, StatusCode: 400}
	ErrUnauthenticated   = &AppError{Message: "user not authenticated", Code: CodeUnauthenticated, StatusCode: 401}
	ErrStorageFailed     = &AppError{Message: "storage operation failed", Code: CodeStorage, StatusCode: 500}
	ErrPersistenceFailed = &AppError{Message: "persistence operation failed", Code: CodePersistence, StatusCode: 500}
	ErrNotFound          = &AppError{Message: "not found", Code: CodeNotFound, StatusCode: 404}
	ErrAlreadySpeaking   = &AppError{Message: "speech already in progress", Code: CodeAlreadySpeaking, StatusCode: 409}
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func NewRecognitionError(message string, cause error) *AppError {
	return &AppError{
		Message:    message,
		Code:       CodeRecognitionFailed,
		StatusCode: 502,
		Cause:      cause,
	}
}

func NewSynthesisError(message string, cause error, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       CodeSynthesisFailed,
		StatusCode: 502,
		Context:    context,
		Cause:      cause,
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func (e *ValidationError) Unwrap() error {
	return e.AppError
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Message:    message,
		Code:       CodeUnauthenticated,
		StatusCode: 401,
	}
}

type StorageError struct {
	*AppError
	Operation string
	Key       string
}

func (e *StorageError) Unwrap() error {
	return e.AppError
}

func NewStorageError(message, operation, key string, cause error) *StorageError {
	return &StorageError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStorage,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type PersistenceError struct {
	*AppError
	Table     string
	Operation string
}

func (e *PersistenceError) Unwrap() error {
	return e.AppError
}

func NewPersistenceError(message, table, operation string, cause error) *PersistenceError {
	return &PersistenceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodePersistence,
			StatusCode: 500,
			Context: map[string]any{
				"table":     table,
				"operation": operation,
			},
			Cause: cause,
		},
		Table:     table,
		Operation: operation,
	}
}

func NewNotFoundError(message, resource, id string) *AppError {
	return &AppError{
		Message:    message,
		Code:       CodeNotFound,
		StatusCode: 404,
		Context: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewAlreadySpeakingError(sessionID string) *AppError {
	return &AppError{
		Message:    "a phrase is already being spoken",
		Code:       CodeAlreadySpeaking,
		StatusCode: 409,
		Context:    map[string]any{"session": sessionID},
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func (e *CacheError) Unwrap() error {
	return e.AppError
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

func NewAPIError(message string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       CodeAPIError,
		StatusCode: statusCode,
		Context:    context,
	}
}

// StatusCode extracts the HTTP status carried by an AppError chain, defaulting to 500.
func StatusCode(err error) int {
	var appErr *AppError
	if As(err, &appErr) && appErr.StatusCode > 0 {
		return appErr.StatusCode
	}
	return 500
}

// CodeOf returns the code of the first AppError in the chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func New(message string) error {
	return stderrors.New(message)
}
