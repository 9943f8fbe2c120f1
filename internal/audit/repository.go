package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/followup/pkg/pagination"
	"github.com/JaimeStill/followup/pkg/query"
	"github.com/JaimeStill/followup/pkg/repository"
)

var errs = repository.Errors{NotFound: ErrNotFound, Conflict: ErrDuplicate}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a PostgreSQL audit repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "audit"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Write(ctx context.Context, e Entry) error {
	evidence, err := marshalNullable(e.Evidence, e.Evidence == nil)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	advisory, err := marshalNullable(e.Advisory, e.Advisory == nil)
	if err != nil {
		return fmt.Errorf("marshal advisory: %w", err)
	}

	decision, err := json.Marshal(e.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	q := `
		INSERT INTO audit_entries(
			id, kind, session_id, patient_id, evidence, advisory, decision,
			action, rule, effect, status_before, status_after, note, error,
			recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Kind),
		e.SessionID,
		e.PatientID,
		evidence,
		advisory,
		decision,
		string(e.Decision.Action),
		e.Rule,
		string(e.Effect),
		string(e.StatusBefore),
		string(e.StatusAfter),
		e.Note,
		e.Error,
		e.RecordedAt,
	)
	if err != nil {
		return errs.Map(err)
	}

	return nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "patient_id", "session_id", "note")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.Page(ctx, r.db, qb, page, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Entry, error) {
	q, args := query.NewBuilder(projection).BuildSingle("id", id)

	e, err := repository.Get(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, errs.Map(err)
	}
	return &e, nil
}
