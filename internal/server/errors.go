package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/maniishbhusal/TrustChain/internal/pipeline"
	"github.com/maniishbhusal/TrustChain/internal/resume"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrVerificationNotFound indicates no verification has the requested ID
type ErrVerificationNotFound struct {
	ID uuid.UUID
}

func (e *ErrVerificationNotFound) Error() string {
	return fmt.Sprintf("verification not found: %s", e.ID)
}

// ErrUploadTooLarge indicates the multipart body exceeded the configured limit
type ErrUploadTooLarge struct {
	Limit int64
}

func (e *ErrUploadTooLarge) Error() string {
	return fmt.Sprintf("upload exceeds %d bytes", e.Limit)
}

// ErrStoreUnavailable is returned when a request needs persistence but none is configured
var ErrStoreUnavailable = errors.New("verification storage is not configured")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		notFound   *ErrVerificationNotFound
		tooLarge   *ErrUploadTooLarge
		parse      *resume.ParseError
	)
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validation), errors.Is(err, pipeline.ErrEmptyUsername):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
