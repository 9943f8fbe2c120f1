package cases

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/query"
	"github.com/JaimeStill/followup/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "patient_cases", "pc").
	Project(
		"patient_id",
		"status",
		"priority",
		"retry_count",
		"attempts",
		"last_decision",
		"notify",
		"next_follow_up",
		"retry_at",
		"reviewed_by",
		"reviewed_at",
		"updated_at",
	)

var defaultSort = query.SortField{
	Field:      "updated_at",
	Descending: true,
}

// Filters contains optional filtering criteria for case queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
	Notify   *bool   `json:"notify,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("status", f.Status).
		WhereEquals("priority", f.Priority).
		WhereEquals("notify", f.Notify)
}

// Match reports whether c satisfies every set filter.
func (f Filters) Match(c routing.Case) bool {
	switch {
	case f.Status != nil && string(c.Status) != *f.Status:
		return false
	case f.Priority != nil && string(c.Priority) != *f.Priority:
		return false
	case f.Notify != nil && c.Notify != *f.Notify:
		return false
	}
	return true
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		s = strings.ToUpper(s)
		f.Status = &s
	}

	if p := values.Get("priority"); p != "" {
		p = strings.ToUpper(p)
		f.Priority = &p
	}

	if n := values.Get("notify"); n != "" {
		v := n == "true" || n == "1"
		f.Notify = &v
	}

	return f
}

func scanCase(s repository.Scanner) (routing.Case, error) {
	var c routing.Case
	var decisionRaw []byte

	err := s.Scan(
		&c.PatientID,
		&c.Status,
		&c.Priority,
		&c.RetryCount,
		&c.Attempts,
		&decisionRaw,
		&c.Notify,
		&c.NextFollowUp,
		&c.RetryAt,
		&c.ReviewedBy,
		&c.ReviewedAt,
		&c.UpdatedAt,
	)

	if err != nil {
		return c, err
	}

	if len(decisionRaw) > 0 {
		var d routing.Decision
		if err := json.Unmarshal(decisionRaw, &d); err != nil {
			return c, fmt.Errorf("unmarshal last_decision: %w", err)
		}
		c.LastDecision = &d
	}

	return c, nil
}
