// Package routing turns the outcome of a single patient interaction into a
// workflow action and applies that action to the patient's case.
//
// The package is pure: the Decision Engine and Updater hold only
// configuration and are safe for concurrent use across patients. Callers
// own serialization per patient id.
package routing

import (
	"slices"
	"strings"
	"time"
)

// Action is a resolved workflow action.
type Action string

const (
	CloseLoop          Action = "CLOSE_LOOP"
	FlagForReview      Action = "FLAG_FOR_DOCTOR_REVIEW"
	EscalateUrgent     Action = "ESCALATE_URGENT"
	RetryCommunication Action = "RETRY_COMMUNICATION"
)

// Actions lists every known action.
var Actions = []Action{CloseLoop, FlagForReview, EscalateUrgent, RetryCommunication}

// ParseAction matches s against the known actions, ignoring case and
// surrounding whitespace.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(Actions, a) {
		return a, true
	}
	return "", false
}

// Status is the workflow state of a PatientCase.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusCompleted      Status = "COMPLETED"
	StatusFlagged        Status = "FLAGGED_FOR_REVIEW"
	StatusEscalated      Status = "ESCALATED_URGENT"
	StatusRetryScheduled Status = "RETRY_SCHEDULED"
)

// Terminal reports whether no further transition may be applied.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEscalated
}

func (s Status) in(states ...Status) bool {
	return slices.Contains(states, s)
}

// Priority orders cases for clinician attention.
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Decision is the resolved output of the Decision Engine.
type Decision struct {
	Action     Action   `json:"action"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Concerns   []string `json:"concerns,omitempty"`
}

func (d Decision) clone() Decision {
	d.Concerns = slices.Clone(d.Concerns)
	return d
}

// Advisory is the untrusted classifier output. A nil Confidence means the
// classifier did not supply one.
type Advisory struct {
	Action           string   `json:"action"`
	Confidence       *float64 `json:"confidence"`
	Rationale        string   `json:"rationale"`
	UrgentConditions []string `json:"urgent_conditions,omitempty"`
	NextSteps        []string `json:"next_steps,omitempty"`
	Raw              string   `json:"raw,omitempty"`
}

// Case is the follow-up record for one patient.
type Case struct {
	PatientID    string     `json:"patient_id"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	RetryCount   int        `json:"retry_count"`
	Attempts     int        `json:"attempts"`
	LastDecision *Decision  `json:"last_decision,omitempty"`
	Notify       bool       `json:"notify"`
	NextFollowUp *time.Time `json:"next_follow_up,omitempty"`
	RetryAt      *time.Time `json:"retry_at,omitempty"`
	ReviewedBy   *string    `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewCase returns a PENDING, NORMAL priority case.
func NewCase(patientID string) Case {
	return Case{
		PatientID: patientID,
		Status:    StatusPending,
		Priority:  PriorityNormal,
	}
}

// Clone returns a deep copy of c.
func (c Case) Clone() Case {
	if c.LastDecision != nil {
		d := c.LastDecision.clone()
		c.LastDecision = &d
	}
	c.NextFollowUp = clonePtr(c.NextFollowUp)
	c.RetryAt = clonePtr(c.RetryAt)
	c.ReviewedBy = clonePtr(c.ReviewedBy)
	c.ReviewedAt = clonePtr(c.ReviewedAt)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
