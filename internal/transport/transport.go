// Package transport places patient interactions through the external voice
// session service and reports what each attempt collected.
package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/routing"
)

// Transport errors. Any of these on a call marks the attempt as a
// technical failure.
var (
	ErrCallFailed = errors.New("call failed")
	ErrNoAnswer   = errors.New("patient did not answer")
)

// Request describes one interaction attempt.
type Request struct {
	PatientID string
	SessionID string
	Patient   directory.Patient
	Action    string
	Goals     []string
}

// NewRequest builds a request for patient with the goals for action.
func NewRequest(sessionID string, patient directory.Patient, action string) Request {
	return Request{
		PatientID: patient.ID,
		SessionID: sessionID,
		Patient:   patient,
		Action:    action,
		Goals:     Goals(action),
	}
}

// Caller places one interaction. A non-nil error is a transport failure and
// the returned result carries no content.
type Caller interface {
	Call(ctx context.Context, req Request) (routing.CallResult, error)
}

// Goals lists what the interaction should establish for a query action.
func Goals(action string) []string {
	switch action {
	case "follow_up":
		return []string{
			"Verify patient is feeling well",
			"Check medication adherence",
			"Assess any new symptoms",
			"Schedule next appointment if needed",
		}
	case "check_status":
		return []string{
			"Verify current health status",
			"Check medication effectiveness",
			"Assess any side effects",
			"Confirm treatment compliance",
		}
	case "review":
		return []string{
			"Review reported symptoms",
			"Assess symptom severity",
			"Determine if immediate care needed",
			"Provide symptom management advice",
		}
	default:
		return nil
	}
}

// New creates the Caller selected by cfg.
func New(cfg *Config, logger *slog.Logger) Caller {
	if cfg.Provider == ProviderHTTP {
		return NewHTTP(cfg, logger)
	}
	return NewSimulated(cfg)
}
