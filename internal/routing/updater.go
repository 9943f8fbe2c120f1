package routing

import (
	"fmt"
	"strings"
	"time"
)

// NotePostTerminal marks a decision that arrived after the case closed.
const NotePostTerminal = "post-terminal decision ignored"

// Effect describes what a Transition did to the case.
type Effect string

const (
	EffectApplied   Effect = "applied"
	EffectConverted Effect = "converted"
	EffectIgnored   Effect = "ignored"
)

// Transition is the result of applying a Decision. Decision holds the
// decision actually applied, which differs from the input when a retry
// converts to a review flag.
type Transition struct {
	Before   Case     `json:"before"`
	After    Case     `json:"after"`
	Decision Decision `json:"decision"`
	Effect   Effect   `json:"effect"`
	Note     string   `json:"note,omitempty"`
	Err      error    `json:"-"`
}

// Updater applies decisions to cases according to the state machine.
type Updater struct {
	maxRetries  int
	followUp    time.Duration
	backoff     time.Duration
	safetyTerms []string
	now         func() time.Time
}

// NewUpdater creates an Updater from finalized routing config.
func NewUpdater(cfg *Config) *Updater {
	terms := make([]string, len(cfg.SafetyTerms))
	for i, t := range cfg.SafetyTerms {
		terms[i] = strings.ToLower(t)
	}
	return &Updater{
		maxRetries:  *cfg.MaxRetries,
		followUp:    cfg.FollowUpIntervalDuration(),
		backoff:     cfg.RetryBackoffDuration(),
		safetyTerms: terms,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (u *Updater) SetClock(now func() time.Time) {
	u.now = now
}

// MaxRetries returns the configured retry bound.
func (u *Updater) MaxRetries() int {
	return u.maxRetries
}

// Begin marks the start of an interaction attempt. Terminal cases cannot
// begin a new attempt. Starting from FLAGGED_FOR_REVIEW opens a new cycle
// and clears the retry count.
func (u *Updater) Begin(c Case) (Case, error) {
	if !c.Status.in(StatusPending, StatusInProgress, StatusRetryScheduled, StatusFlagged) {
		return c, fmt.Errorf("%w: cannot begin attempt for %s case", ErrIllegalTransition, c.Status)
	}

	next := c.Clone()
	if c.Status == StatusFlagged {
		next.RetryCount = 0
		next.Priority = PriorityNormal
	}
	next.Status = StatusInProgress
	next.Attempts++
	next.RetryAt = nil
	next.UpdatedAt = u.now()
	return next, nil
}

// Apply transitions c by d and returns the resulting Transition. The input
// case is never modified.
func (u *Updater) Apply(c Case, d Decision) Transition {
	if c.Status.Terminal() {
		return ignore(c, d, NotePostTerminal)
	}

	switch d.Action {
	case RetryCommunication:
		if !c.Status.in(StatusPending, StatusInProgress, StatusRetryScheduled) {
			return ignore(c, d, notApplicable(c.Status))
		}
		if c.RetryCount+1 > u.maxRetries {
			return u.exhausted(c)
		}
		return u.retry(c, d)
	case CloseLoop, FlagForReview, EscalateUrgent:
		if !c.Status.in(StatusPending, StatusInProgress) {
			return ignore(c, d, notApplicable(c.Status))
		}
		return u.settle(c, d)
	default:
		return ignore(c, d, fmt.Sprintf("unknown action %q", d.Action))
	}
}

// Review resolves a flagged case by clinician decision. Only CLOSE_LOOP and
// ESCALATE_URGENT are accepted.
func (u *Updater) Review(c Case, action Action, reviewer, notes string) Transition {
	d := Decision{
		Action:     action,
		Confidence: 1.0,
		Rationale:  reviewRationale(reviewer, notes),
	}

	if c.Status != StatusFlagged {
		if c.Status.Terminal() {
			return ignore(c, d, NotePostTerminal)
		}
		return ignore(c, d, notApplicable(c.Status))
	}
	if action != CloseLoop && action != EscalateUrgent {
		return ignore(c, d, fmt.Sprintf("review cannot apply %s", action))
	}

	t := u.settle(c, d)
	at := t.After.UpdatedAt
	t.After.ReviewedBy = &reviewer
	t.After.ReviewedAt = &at
	return t
}

func (u *Updater) settle(c Case, d Decision) Transition {
	now := u.now()
	next := c.Clone()
	applied := d.clone()

	switch d.Action {
	case CloseLoop:
		next.Status = StatusCompleted
		next.Priority = PriorityNormal
		at := now.Add(u.followUp)
		next.NextFollowUp = &at
	case FlagForReview:
		next.Status = StatusFlagged
		next.Priority = PriorityNormal
		if u.safetyConcern(d) {
			next.Priority = PriorityHigh
		}
	case EscalateUrgent:
		next.Status = StatusEscalated
		next.Priority = PriorityHigh
		next.Notify = true
	}

	next.RetryAt = nil
	next.LastDecision = &applied
	next.UpdatedAt = now

	return Transition{
		Before:   c.Clone(),
		After:    next,
		Decision: applied,
		Effect:   EffectApplied,
	}
}

func (u *Updater) retry(c Case, d Decision) Transition {
	now := u.now()
	next := c.Clone()
	applied := d.clone()

	next.Status = StatusRetryScheduled
	next.RetryCount++
	at := now.Add(u.retryDelay(next.RetryCount))
	next.RetryAt = &at
	next.LastDecision = &applied
	next.UpdatedAt = now

	return Transition{
		Before:   c.Clone(),
		After:    next,
		Decision: applied,
		Effect:   EffectApplied,
	}
}

func (u *Updater) exhausted(c Case) Transition {
	flag := Decision{
		Action:     FlagForReview,
		Confidence: 1.0,
		Rationale: fmt.Sprintf(
			"%s: retry limit exceeded after %d retries",
			RationaleTechnicalFailure, c.RetryCount,
		),
	}

	t := u.settle(c, flag)
	t.Effect = EffectConverted
	t.Note = "retry converted to review flag"
	t.Err = fmt.Errorf("%w: %d of %d retries used", ErrRetryLimitExceeded, c.RetryCount, u.maxRetries)
	return t
}

// maxRetryDelay bounds the exponential backoff.
const maxRetryDelay = 24 * time.Hour

func (u *Updater) retryDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := u.backoff
	if d <= 0 {
		return 0
	}
	for i := 1; i < n; i++ {
		if d >= maxRetryDelay/2 {
			return maxRetryDelay
		}
		d *= 2
	}
	return min(d, maxRetryDelay)
}

func (u *Updater) safetyConcern(d Decision) bool {
	if len(d.Concerns) > 0 {
		return true
	}
	rationale := strings.ToLower(d.Rationale)
	for _, term := range u.safetyTerms {
		if strings.Contains(rationale, term) {
			return true
		}
	}
	return false
}

func ignore(c Case, d Decision, note string) Transition {
	return Transition{
		Before:   c.Clone(),
		After:    c.Clone(),
		Decision: d.clone(),
		Effect:   EffectIgnored,
		Note:     note,
		Err:      fmt.Errorf("%w: %s", ErrIllegalTransition, note),
	}
}

func notApplicable(s Status) string {
	return fmt.Sprintf("decision not applicable in %s", s)
}

func reviewRationale(reviewer, notes string) string {
	if notes == "" {
		return "reviewed by " + reviewer
	}
	return "reviewed by " + reviewer + ": " + notes
}
