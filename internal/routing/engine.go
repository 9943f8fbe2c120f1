package routing

import (
	"fmt"
	"math"
	"slices"
)

// Fixed rationales produced by the engine's fallback rules.
const (
	RationaleTechnicalFailure = "technical failure"
	RationaleInvalidAdvisory  = "classifier output invalid"
	NoteDowngraded            = "downgraded from low-confidence escalation"
)

// Rule identifies which resolution rule produced a Decision.
type Rule int

const (
	RuleTransportFailure Rule = iota
	RuleInvalidAdvisory
	RuleLowConfidenceEscalation
	RulePassThrough
)

func (r Rule) String() string {
	switch r {
	case RuleTransportFailure:
		return "transport_failure"
	case RuleInvalidAdvisory:
		return "invalid_advisory"
	case RuleLowConfidenceEscalation:
		return "low_confidence_escalation"
	default:
		return "pass_through"
	}
}

// Resolution is a Decision plus the rule that produced it. Err is set for
// the transport failure and invalid advisory rules.
type Resolution struct {
	Decision Decision
	Rule     Rule
	Err      error
}

// Engine resolves evidence and advisory input into a Decision.
type Engine struct {
	threshold float64
}

// NewEngine creates an Engine from finalized routing config.
func NewEngine(cfg *Config) *Engine {
	return &Engine{threshold: *cfg.EscalationThreshold}
}

// Threshold returns the minimum confidence an escalation must carry.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Resolve applies the resolution rules in order; the first match wins.
func (e *Engine) Resolve(ev Evidence, adv *Advisory) Resolution {
	if ev.Failed() {
		return Resolution{
			Decision: Decision{
				Action:     RetryCommunication,
				Confidence: 1.0,
				Rationale:  RationaleTechnicalFailure,
			},
			Rule: RuleTransportFailure,
			Err:  fmt.Errorf("%w: %s", ErrTransportFailure, ev.TransportError),
		}
	}

	action, err := validateAdvisory(adv)
	if err != nil {
		return Resolution{
			Decision: Decision{
				Action:     FlagForReview,
				Confidence: 0.0,
				Rationale:  RationaleInvalidAdvisory,
			},
			Rule: RuleInvalidAdvisory,
			Err:  err,
		}
	}

	d := Decision{
		Action:     action,
		Confidence: *adv.Confidence,
		Rationale:  adv.Rationale,
		Concerns:   slices.Clone(adv.UrgentConditions),
	}

	if d.Action == EscalateUrgent && d.Confidence < e.threshold {
		d.Action = FlagForReview
		d.Rationale = annotate(adv.Rationale)
		return Resolution{Decision: d, Rule: RuleLowConfidenceEscalation}
	}

	return Resolution{Decision: d, Rule: RulePassThrough}
}

func validateAdvisory(adv *Advisory) (Action, error) {
	if adv == nil {
		return "", fmt.Errorf("%w: advisory missing", ErrInvalidClassifierOutput)
	}
	action, ok := ParseAction(adv.Action)
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidClassifierOutput, adv.Action)
	}
	if adv.Confidence == nil {
		return "", fmt.Errorf("%w: confidence missing", ErrInvalidClassifierOutput)
	}
	c := *adv.Confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		return "", fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidClassifierOutput, c)
	}
	return action, nil
}

func annotate(rationale string) string {
	if rationale == "" {
		return NoteDowngraded
	}
	return rationale + " (" + NoteDowngraded + ")"
}
