package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/followup/pkg/pagination"
)

// Reader queries recorded entries.
type Reader interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Entry], error)

	Find(ctx context.Context, id uuid.UUID) (*Entry, error)
}

// System defines the public contract for the database-backed audit trail.
type System interface {
	Sink
	Reader
	Handler() *Handler
}
