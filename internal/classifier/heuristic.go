package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/followup/internal/routing"
)

// UrgentSignals are evidence fields that call for escalation when observed.
var UrgentSignals = []string{
	"blood_pressure_elevated",
	"chest_pain_persistent",
	"pain_severe",
	"patient_distressed",
	"shortness_of_breath",
}

// Heuristic is a deterministic offline classifier driven by the
// interaction's own signals. Its confidence is the transport's signal
// confidence, so an interaction without one yields an advisory the engine
// will reject.
type Heuristic struct{}

// Classify suggests an action:
//
//   - close when signal confidence is at least 0.8, quality is good or
//     excellent, and nothing is missing
//   - escalate when any urgent signal was observed
//   - flag when data is missing or confidence is below 0.6
//   - close otherwise
func (Heuristic) Classify(_ context.Context, s Subject) (*routing.Advisory, error) {
	ev := s.Evidence
	adv := &routing.Advisory{Confidence: ev.SignalConfidence}

	conf := 0.0
	if ev.SignalConfidence != nil {
		conf = *ev.SignalConfidence
	}
	quality := strings.ToLower(ev.Quality)
	goodQuality := quality == "good" || quality == "excellent"

	var urgent []string
	for _, name := range UrgentSignals {
		if ev.Flag(name) == routing.True {
			urgent = append(urgent, name)
		}
	}

	switch {
	case conf >= 0.8 && goodQuality && len(ev.Missing) == 0:
		adv.Action = string(routing.CloseLoop)
		adv.Rationale = fmt.Sprintf("interaction complete with %s quality", quality)
		adv.NextSteps = []string{"schedule routine follow-up"}
	case len(urgent) > 0:
		adv.Action = string(routing.EscalateUrgent)
		adv.Rationale = "urgent conditions observed: " + strings.Join(urgent, ", ")
		adv.UrgentConditions = urgent
		adv.NextSteps = []string{"contact patient immediately", "notify on-call physician"}
	case len(ev.Missing) > 0:
		adv.Action = string(routing.FlagForReview)
		adv.Rationale = "missing data: " + strings.Join(ev.Missing, ", ")
		adv.NextSteps = []string{"doctor review of incomplete interaction"}
	case conf < 0.6:
		adv.Action = string(routing.FlagForReview)
		adv.Rationale = fmt.Sprintf("low interaction confidence %.2f", conf)
		adv.NextSteps = []string{"doctor review of incomplete interaction"}
	default:
		adv.Action = string(routing.CloseLoop)
		adv.Rationale = "no concerns identified"
	}

	return adv, nil
}

// ParseQuery extracts criteria by keyword matching.
func (Heuristic) ParseQuery(_ context.Context, query string) (Criteria, error) {
	return ParseKeywords(query), nil
}
