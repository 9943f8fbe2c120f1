package followup

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/pkg/storage"
)

// Follow-up request errors.
var (
	ErrEmptyQuery    = errors.New("query or patient_ids required")
	ErrInvalidReview = errors.New("invalid review")
	ErrNotReviewable = errors.New("case is not awaiting review")
)

// MapHTTPStatus maps follow-up errors, including those of the systems it
// drives, to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidReview):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotReviewable):
		return http.StatusConflict
	case errors.Is(err, cases.ErrNotFound), errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrEmptyKey), errors.Is(err, storage.ErrInvalidKey):
		return storage.MapHTTPStatus(err)
	default:
		return http.StatusInternalServerError
	}
}
