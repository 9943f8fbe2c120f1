package audit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/query"
	"github.com/JaimeStill/followup/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "audit_entries", "a").
	Project(
		"id",
		"kind",
		"session_id",
		"patient_id",
		"evidence",
		"advisory",
		"decision",
		"action",
		"rule",
		"effect",
		"status_before",
		"status_after",
		"note",
		"error",
		"recorded_at",
	)

var defaultSort = query.SortField{
	Field:      "recorded_at",
	Descending: true,
}

// Filters contains optional filtering criteria for audit queries.
// Nil fields are ignored.
type Filters struct {
	PatientID *string    `json:"patient_id,omitempty"`
	SessionID *string    `json:"session_id,omitempty"`
	Kind      *string    `json:"kind,omitempty"`
	Action    *string    `json:"action,omitempty"`
	Effect    *string    `json:"effect,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("patient_id", f.PatientID).
		WhereEquals("session_id", f.SessionID).
		WhereEquals("kind", f.Kind).
		WhereEquals("action", f.Action).
		WhereEquals("effect", f.Effect).
		WhereAtLeast("recorded_at", f.Since)
}

// Match reports whether e satisfies every set filter.
func (f Filters) Match(e Entry) bool {
	switch {
	case f.PatientID != nil && e.PatientID != *f.PatientID:
		return false
	case f.SessionID != nil && e.SessionID != *f.SessionID:
		return false
	case f.Kind != nil && string(e.Kind) != *f.Kind:
		return false
	case f.Action != nil && string(e.Decision.Action) != *f.Action:
		return false
	case f.Effect != nil && string(e.Effect) != *f.Effect:
		return false
	case f.Since != nil && e.RecordedAt.Before(*f.Since):
		return false
	}
	return true
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Since accepts RFC 3339 timestamps.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("patient_id"); p != "" {
		f.PatientID = &p
	}

	if s := values.Get("session_id"); s != "" {
		f.SessionID = &s
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	if a := values.Get("action"); a != "" {
		if action, ok := routing.ParseAction(a); ok {
			v := string(action)
			f.Action = &v
		}
	}

	if e := values.Get("effect"); e != "" {
		e = strings.ToLower(e)
		f.Effect = &e
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	return f
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	var evidenceRaw, advisoryRaw, decisionRaw []byte
	var action string

	err := s.Scan(
		&e.ID,
		&e.Kind,
		&e.SessionID,
		&e.PatientID,
		&evidenceRaw,
		&advisoryRaw,
		&decisionRaw,
		&action,
		&e.Rule,
		&e.Effect,
		&e.StatusBefore,
		&e.StatusAfter,
		&e.Note,
		&e.Error,
		&e.RecordedAt,
	)

	if err != nil {
		return e, err
	}

	if len(evidenceRaw) > 0 {
		var ev routing.Evidence
		if err := json.Unmarshal(evidenceRaw, &ev); err != nil {
			return e, fmt.Errorf("unmarshal evidence: %w", err)
		}
		e.Evidence = &ev
	}

	if len(advisoryRaw) > 0 {
		var adv routing.Advisory
		if err := json.Unmarshal(advisoryRaw, &adv); err != nil {
			return e, fmt.Errorf("unmarshal advisory: %w", err)
		}
		e.Advisory = &adv
	}

	if err := json.Unmarshal(decisionRaw, &e.Decision); err != nil {
		return e, fmt.Errorf("unmarshal decision: %w", err)
	}

	return e, nil
}

func marshalNullable(v any, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}
