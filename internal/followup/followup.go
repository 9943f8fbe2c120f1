// Package followup runs doctor follow-up requests: it resolves the patients
// a query names, contacts each one, routes every interaction outcome, and
// reports where each case landed.
package followup

import (
	"context"
	"io"
	"time"

	"github.com/JaimeStill/followup/internal/classifier"
	"github.com/JaimeStill/followup/internal/routing"
)

// Request is a doctor's follow-up request. PatientIDs, when present,
// bypass the directory query.
type Request struct {
	Query      string   `json:"query"`
	PatientIDs []string `json:"patient_ids,omitempty"`
}

// Outcome is where one patient's case landed.
type Outcome struct {
	PatientID string            `json:"patient_id"`
	Name      string            `json:"name,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Case      routing.Case      `json:"case"`
	Decision  *routing.Decision `json:"decision,omitempty"`
	Rule      string            `json:"rule,omitempty"`
	Attempts  int               `json:"attempts"`
	Note      string            `json:"note,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Summary counts outcomes by case status.
type Summary struct {
	Completed int `json:"completed"`
	Flagged   int `json:"flagged"`
	Escalated int `json:"escalated"`
	Retrying  int `json:"retrying"`
	Total     int `json:"total"`
}

// Report answers a follow-up request.
type Report struct {
	Query       string              `json:"query"`
	Criteria    classifier.Criteria `json:"criteria"`
	Cases       []Outcome           `json:"cases"`
	Summary     Summary             `json:"summary"`
	CompletedAt time.Time           `json:"completed_at"`
}

// ReviewCommand resolves a flagged case by clinician decision.
type ReviewCommand struct {
	Action     string `json:"action"`
	ReviewedBy string `json:"reviewed_by"`
	Notes      string `json:"notes,omitempty"`
}

// System runs follow-up requests and clinician reviews.
type System interface {
	// Submit contacts every patient the request names and routes each
	// outcome. Patients run concurrently; one patient's failure never
	// aborts another.
	Submit(ctx context.Context, req Request) (*Report, error)
	// Review applies a clinician decision to a flagged case.
	Review(ctx context.Context, patientID string, cmd ReviewCommand) (routing.Case, error)
	// Transcript opens the archived record of one call session. The caller
	// closes the reader.
	Transcript(ctx context.Context, patientID, sessionID string) (io.ReadCloser, error)
	Handler() *Handler
}

func summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Case.Status {
		case routing.StatusCompleted:
			s.Completed++
		case routing.StatusFlagged:
			s.Flagged++
		case routing.StatusEscalated:
			s.Escalated++
		case routing.StatusRetryScheduled:
			s.Retrying++
		}
	}
	return s
}
