package followup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/classifier"
	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
	"github.com/JaimeStill/followup/pkg/keylock"
	"github.com/JaimeStill/followup/pkg/storage"
)

type service struct {
	rt     *Runtime
	cfg    *Config
	locks  *keylock.Map
	logger *slog.Logger
	now    func() time.Time
}

// New creates the follow-up system over rt with finalized config.
func New(rt *Runtime, cfg *Config) System {
	return &service{
		rt:     rt,
		cfg:    cfg,
		locks:  keylock.New(),
		logger: rt.Logger.With("system", "followup"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Submit(ctx context.Context, req Request) (*Report, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" && len(req.PatientIDs) == 0 {
		return nil, ErrEmptyQuery
	}

	criteria := classifier.Criteria{Action: classifier.ActionFollowUp}
	if query != "" {
		parsed, err := s.rt.Parser.ParseQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("parse query: %w", err)
		}
		criteria = parsed
	}

	patients, err := s.patients(ctx, query, req.PatientIDs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("follow-up started",
		"query", query,
		"action", criteria.Action,
		"patients", len(patients),
	)

	outcomes := make([]Outcome, len(patients))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, p := range patients {
		g.Go(func() error {
			outcomes[i] = s.process(ctx, p, criteria.Action)
			return nil
		})
	}
	g.Wait()

	report := &Report{
		Query:       query,
		Criteria:    criteria,
		Cases:       outcomes,
		Summary:     summarize(outcomes),
		CompletedAt: s.now(),
	}

	s.logger.Info("follow-up finished",
		"total", report.Summary.Total,
		"completed", report.Summary.Completed,
		"flagged", report.Summary.Flagged,
		"escalated", report.Summary.Escalated,
		"retrying", report.Summary.Retrying,
	)

	return report, nil
}

func (s *service) patients(ctx context.Context, query string, ids []string) ([]directory.Patient, error) {
	if len(ids) == 0 {
		found, err := s.rt.Directory.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("query directory: %w", err)
		}
		return dedupe(found), nil
	}

	found := make([]directory.Patient, 0, len(ids))
	for _, id := range ids {
		p, err := s.rt.Directory.Find(ctx, strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("find patient %s: %w", id, err)
		}
		found = append(found, *p)
	}
	return dedupe(found), nil
}

// process runs attempts for one patient under that patient's lock until the
// case leaves RETRY_SCHEDULED or ctx ends the wait between attempts.
func (s *service) process(ctx context.Context, p directory.Patient, action string) Outcome {
	out := Outcome{PatientID: p.ID, Name: p.Name}

	unlock, err := s.locks.Lock(ctx, p.ID)
	if err != nil {
		out.Case = routing.NewCase(p.ID)
		out.Error = err.Error()
		return out
	}
	defer unlock()

	c, err := cases.Load(ctx, s.rt.Cases, p.ID)
	if err != nil {
		out.Case = routing.NewCase(p.ID)
		out.Error = err.Error()
		return out
	}

	for {
		next, err := s.attempt(ctx, c, p, action, &out)
		out.Case = next
		if err != nil {
			out.Error = err.Error()
			return out
		}
		c = next

		if c.Status != routing.StatusRetryScheduled {
			return out
		}
		if !s.wait(ctx, c) {
			out.Note = "retry pending"
			return out
		}
	}
}

// attempt runs a single begin -> call -> classify -> resolve -> apply ->
// persist -> audit cycle.
func (s *service) attempt(
	ctx context.Context,
	c routing.Case,
	p directory.Patient,
	action string,
	out *Outcome,
) (routing.Case, error) {
	logger := s.logger.With("patient_id", p.ID)

	begun, err := s.rt.Updater.Begin(c)
	if err != nil {
		s.ignorePostTerminal(ctx, c, err)
		out.Note = routing.NotePostTerminal
		return c, nil
	}

	if err := s.persist(ctx, begun); err != nil {
		return c, err
	}

	sessionID := uuid.NewString()
	out.SessionID = sessionID
	out.Attempts++

	result := s.call(ctx, transport.NewRequest(sessionID, p, action))
	ev := routing.Build(sessionID, p.ID, result)
	adv := s.classify(ctx, p, &ev)

	res := s.rt.Engine.Resolve(ev, adv)
	tr := s.rt.Updater.Apply(begun, res.Decision)

	persistErr := s.persist(ctx, tr.After)

	entry := audit.NewEntry(ev, adv, res, tr)
	if persistErr != nil {
		entry.StatusAfter = begun.Status
		entry.Error = joinMessages(entry.Error, persistErr.Error())
	}
	s.rt.Audit.Record(ctx, entry)

	if persistErr != nil {
		logger.Error("resolved decision not persisted",
			"session_id", sessionID,
			"action", tr.Decision.Action,
			"error", persistErr,
		)
		return begun, persistErr
	}

	s.archive(ctx, result.Transcript, ev, adv, tr.Decision)

	decision := tr.Decision
	out.Decision = &decision
	out.Rule = res.Rule.String()
	out.Note = tr.Note

	logger.Info("interaction routed",
		"session_id", sessionID,
		"action", tr.Decision.Action,
		"rule", res.Rule.String(),
		"status", tr.After.Status,
		"effect", tr.Effect,
	)
	if res.Err != nil || tr.Err != nil {
		logger.Warn("routing anomaly", "session_id", sessionID, "error", errors.Join(res.Err, tr.Err))
	}

	return tr.After, nil
}

// persist writes c detached from ctx cancellation so a resolved decision is
// not lost to an aborted request, bounded by the persist timeout.
func (s *service) persist(ctx context.Context, c routing.Case) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeoutDuration())
	defer cancel()

	if err := s.rt.Cases.Put(pctx, c); err != nil {
		return fmt.Errorf("persist case: %w", err)
	}
	return nil
}

// ignorePostTerminal audits and logs a follow-up that reached a case which
// is already closed. The case is left untouched.
func (s *service) ignorePostTerminal(ctx context.Context, c routing.Case, err error) {
	s.logger.Warn(routing.NotePostTerminal,
		"patient_id", c.PatientID,
		"status", c.Status,
		"error", err,
	)

	entry := audit.Entry{
		Kind:         audit.KindDecision,
		SessionID:    uuid.NewString(),
		PatientID:    c.PatientID,
		Effect:       routing.EffectIgnored,
		StatusBefore: c.Status,
		StatusAfter:  c.Status,
		Note:         routing.NotePostTerminal,
		Error:        err.Error(),
	}
	if c.LastDecision != nil {
		entry.Decision = *c.LastDecision
	}
	s.rt.Audit.Record(ctx, entry)
}

func joinMessages(msgs ...string) string {
	var out []string
	for _, m := range msgs {
		if m != "" {
			out = append(out, m)
		}
	}
	return strings.Join(out, "; ")
}

func (s *service) call(ctx context.Context, req transport.Request) routing.CallResult {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeoutDuration())
	defer cancel()

	result, err := s.rt.Caller.Call(callCtx, req)
	if err != nil {
		return routing.CallResult{Err: err}
	}
	return result
}

// classify obtains an advisory for ev. Failed interactions are not
// classified. A classifier timeout marks ev as a transport failure; any
// other classifier error leaves the advisory nil.
func (s *service) classify(ctx context.Context, p directory.Patient, ev *routing.Evidence) *routing.Advisory {
	if ev.Failed() {
		return nil
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.cfg.ClassifyTimeoutDuration())
	defer cancel()

	adv, err := s.rt.Classifier.Classify(classifyCtx, classifier.Subject{Patient: p, Evidence: *ev})
	if err == nil {
		return adv
	}

	if errors.Is(err, context.DeadlineExceeded) {
		ev.TransportError = fmt.Sprintf("classifier timeout: %v", err)
		ev.RawSignal = ev.TransportError
		return nil
	}

	s.logger.Warn("classifier failed", "patient_id", p.ID, "session_id", ev.SessionID, "error", err)
	return nil
}

func (s *service) archive(
	ctx context.Context,
	text string,
	ev routing.Evidence,
	adv *routing.Advisory,
	d routing.Decision,
) {
	if s.rt.Storage == nil {
		return
	}

	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeoutDuration())
	defer cancel()

	err := archive(archiveCtx, s.rt.Storage, transcript{
		PatientID:  ev.PatientID,
		SessionID:  ev.SessionID,
		Transcript: text,
		Evidence:   ev,
		Advisory:   adv,
		Decision:   d,
	})
	if err != nil {
		s.logger.Warn("transcript archive failed", "patient_id", ev.PatientID, "session_id", ev.SessionID, "error", err)
	}
}

func (s *service) Transcript(ctx context.Context, patientID, sessionID string) (io.ReadCloser, error) {
	if s.rt.Storage == nil {
		return nil, storage.ErrNotFound
	}
	return s.rt.Storage.Download(ctx, TranscriptKey(patientID, sessionID))
}

// wait blocks until the case's retry time, bounded by the configured cap.
// It reports false when ctx ended the wait.
func (s *service) wait(ctx context.Context, c routing.Case) bool {
	var d time.Duration
	if c.RetryAt != nil {
		d = c.RetryAt.Sub(s.now())
	}
	d = max(0, min(d, s.cfg.RetryWaitCapDuration()))

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *service) Review(ctx context.Context, patientID string, cmd ReviewCommand) (routing.Case, error) {
	action, ok := routing.ParseAction(cmd.Action)
	if !ok {
		return routing.Case{}, fmt.Errorf("%w: unknown action %q", ErrInvalidReview, cmd.Action)
	}
	if action != routing.CloseLoop && action != routing.EscalateUrgent {
		return routing.Case{}, fmt.Errorf("%w: review resolves to %s or %s", ErrInvalidReview, routing.CloseLoop, routing.EscalateUrgent)
	}
	reviewer := strings.TrimSpace(cmd.ReviewedBy)
	if reviewer == "" {
		return routing.Case{}, fmt.Errorf("%w: reviewed_by required", ErrInvalidReview)
	}

	unlock, err := s.locks.Lock(ctx, patientID)
	if err != nil {
		return routing.Case{}, err
	}
	defer unlock()

	c, err := s.rt.Cases.Get(ctx, patientID)
	if err != nil {
		return routing.Case{}, err
	}

	tr := s.rt.Updater.Review(c, action, reviewer, strings.TrimSpace(cmd.Notes))

	var persistErr error
	if tr.Effect == routing.EffectApplied {
		persistErr = s.persist(ctx, tr.After)
	}

	entry := audit.NewReviewEntry(uuid.NewString(), tr)
	if persistErr != nil {
		entry.StatusAfter = c.Status
		entry.Error = joinMessages(entry.Error, persistErr.Error())
	}
	s.rt.Audit.Record(ctx, entry)

	if persistErr != nil {
		return c, persistErr
	}

	if tr.Err != nil {
		return tr.After, fmt.Errorf("%w: %w", ErrNotReviewable, tr.Err)
	}

	s.logger.Info("case reviewed",
		"patient_id", patientID,
		"action", action,
		"reviewed_by", reviewer,
		"status", tr.After.Status,
	)
	return tr.After, nil
}

func dedupe(patients []directory.Patient) []directory.Patient {
	seen := make(map[string]bool, len(patients))
	out := make([]directory.Patient, 0, len(patients))
	for _, p := range patients {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
