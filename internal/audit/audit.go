// Package audit records every routing decision in an append-only trail.
//
// Recording never fails the caller. Sink errors are wrapped in
// ErrWriteFailed and delivered on the emitter's fault channel.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/followup/internal/routing"
)

// Kind distinguishes automated decisions from clinician reviews.
type Kind string

const (
	KindDecision Kind = "decision"
	KindReview   Kind = "review"
)

// Entry is one immutable audit record.
type Entry struct {
	ID           uuid.UUID         `json:"id"`
	Kind         Kind              `json:"kind"`
	SessionID    string            `json:"session_id"`
	PatientID    string            `json:"patient_id"`
	Evidence     *routing.Evidence `json:"evidence,omitempty"`
	Advisory     *routing.Advisory `json:"advisory,omitempty"`
	Decision     routing.Decision  `json:"decision"`
	Rule         string            `json:"rule,omitempty"`
	Effect       routing.Effect    `json:"effect"`
	StatusBefore routing.Status    `json:"status_before"`
	StatusAfter  routing.Status    `json:"status_after"`
	Note         string            `json:"note,omitempty"`
	Error        string            `json:"error,omitempty"`
	RecordedAt   time.Time         `json:"recorded_at"`
}

// NewEntry builds the entry for a resolved decision and the transition it
// produced. Resolution and transition errors are joined into Error.
func NewEntry(
	ev routing.Evidence,
	adv *routing.Advisory,
	res routing.Resolution,
	t routing.Transition,
) Entry {
	e := Entry{
		Kind:         KindDecision,
		SessionID:    ev.SessionID,
		PatientID:    ev.PatientID,
		Evidence:     &ev,
		Advisory:     adv,
		Decision:     t.Decision,
		Rule:         res.Rule.String(),
		Effect:       t.Effect,
		StatusBefore: t.Before.Status,
		StatusAfter:  t.After.Status,
		Note:         t.Note,
	}
	e.Error = joinErrors(res.Err, t.Err)
	return e
}

// NewReviewEntry builds the entry for a clinician review.
func NewReviewEntry(sessionID string, t routing.Transition) Entry {
	return Entry{
		Kind:         KindReview,
		SessionID:    sessionID,
		PatientID:    t.Before.PatientID,
		Decision:     t.Decision,
		Effect:       t.Effect,
		StatusBefore: t.Before.Status,
		StatusAfter:  t.After.Status,
		Note:         t.Note,
		Error:        joinErrors(t.Err),
	}
}

// Sink persists entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Fault reports an entry that could not be written.
type Fault struct {
	Entry Entry
	Err   error
	At    time.Time
}

func joinErrors(errs ...error) string {
	var msg string
	for _, err := range errs {
		if err == nil {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}
