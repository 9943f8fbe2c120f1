package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/pagination"
	"github.com/JaimeStill/followup/pkg/query"
	"github.com/JaimeStill/followup/pkg/repository"
)

var errs = repository.Errors{NotFound: ErrNotFound, Conflict: ErrConflict}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a PostgreSQL case repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "cases"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Get(ctx context.Context, patientID string) (routing.Case, error) {
	q, args := query.NewBuilder(projection).BuildSingle("patient_id", patientID)

	c, err := repository.Get(ctx, r.db, q, args, scanCase)
	if err != nil {
		return routing.Case{}, errs.Map(err)
	}
	return c, nil
}

func (r *repo) Put(ctx context.Context, c routing.Case) error {
	var decision []byte
	if c.LastDecision != nil {
		var err error
		if decision, err = json.Marshal(c.LastDecision); err != nil {
			return fmt.Errorf("marshal last_decision: %w", err)
		}
	}

	q := `
		INSERT INTO patient_cases(
			patient_id, status, priority, retry_count, attempts, last_decision,
			notify, next_follow_up, retry_at, reviewed_by, reviewed_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (patient_id) DO UPDATE SET
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			retry_count = EXCLUDED.retry_count,
			attempts = EXCLUDED.attempts,
			last_decision = EXCLUDED.last_decision,
			notify = EXCLUDED.notify,
			next_follow_up = EXCLUDED.next_follow_up,
			retry_at = EXCLUDED.retry_at,
			reviewed_by = EXCLUDED.reviewed_by,
			reviewed_at = EXCLUDED.reviewed_at,
			updated_at = EXCLUDED.updated_at`

	err := repository.ExecOne(ctx, r.db, q,
		c.PatientID,
		string(c.Status),
		string(c.Priority),
		c.RetryCount,
		c.Attempts,
		decision,
		c.Notify,
		c.NextFollowUp,
		c.RetryAt,
		c.ReviewedBy,
		c.ReviewedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return errs.Map(err)
	}

	r.logger.Debug("case stored",
		"patient_id", c.PatientID,
		"status", c.Status,
		"priority", c.Priority,
	)
	return nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[routing.Case], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "patient_id")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.Page(ctx, r.db, qb, page, scanCase)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return result, nil
}
