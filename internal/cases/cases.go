// Package cases persists patient follow-up cases.
package cases

import (
	"context"
	"errors"
	"net/http"

	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/pagination"
)

// Case errors.
var (
	ErrNotFound = errors.New("case not found")
	ErrConflict = errors.New("case conflict")
)

// MapHTTPStatus maps case domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Store reads and writes cases keyed by patient id. Callers serialize
// writes per patient.
type Store interface {
	Get(ctx context.Context, patientID string) (routing.Case, error)
	Put(ctx context.Context, c routing.Case) error

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[routing.Case], error)
}

// System is the database-backed Store with HTTP endpoints.
type System interface {
	Store
	Handler() *Handler
}

// Load returns the stored case for patientID, or a new PENDING case when
// none exists.
func Load(ctx context.Context, s Store, patientID string) (routing.Case, error) {
	c, err := s.Get(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return routing.NewCase(patientID), nil
	}
	return c, err
}
