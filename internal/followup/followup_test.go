package followup_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/classifier"
	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/internal/mockdb"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
	"github.com/JaimeStill/followup/pkg/storage"
)

type harness struct {
	sys     followup.System
	cases   *cases.Memory
	audit   *audit.Memory
	storage *storage.Memory
}

type option func(*followup.Runtime, *followup.Config)

func withCaller(c transport.Caller) option {
	return func(rt *followup.Runtime, _ *followup.Config) { rt.Caller = c }
}

func withClassifier(c classifier.Classifier) option {
	return func(rt *followup.Runtime, _ *followup.Config) { rt.Classifier = c }
}

func withStore(store cases.Store) option {
	return func(rt *followup.Runtime, _ *followup.Config) { rt.Cases = store }
}

func withPersistTimeout(d string) option {
	return func(_ *followup.Runtime, cfg *followup.Config) { cfg.PersistTimeout = d }
}

func withRetryWaitCap(d string) option {
	return func(_ *followup.Runtime, cfg *followup.Config) { cfg.RetryWaitCap = d }
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	routingCfg := &routing.Config{RetryBackoff: "1ms"}
	require.NoError(t, routingCfg.Finalize(nil))

	auditCfg := &audit.Config{Sinks: []string{audit.SinkMemory}}
	require.NoError(t, auditCfg.Finalize(nil))

	h := &harness{
		cases:   cases.NewMemory(),
		audit:   audit.NewMemory(),
		storage: storage.NewMemory(),
	}

	rt := &followup.Runtime{
		Directory:  mockdb.NewCatalog(),
		Caller:     transport.NewSimulated(&transport.Config{Seed: 1}),
		Classifier: classifier.Heuristic{},
		Parser:     classifier.Heuristic{},
		Cases:      h.cases,
		Audit:      audit.NewEmitter(h.audit, logger, auditCfg),
		Storage:    h.storage,
		Engine:     routing.NewEngine(routingCfg),
		Updater:    routing.NewUpdater(routingCfg),
		Logger:     logger,
	}
	cfg := &followup.Config{RetryWaitCap: "5ms"}

	for _, opt := range opts {
		opt(rt, cfg)
	}
	require.NoError(t, cfg.Finalize(nil))

	h.sys = followup.New(rt, cfg)
	return h
}

// scriptedCaller fails the first failures calls of each patient and then
// defers to the simulator.
type scriptedCaller struct {
	failures int
	calls    atomic.Int32
	after    func()
	sim      *transport.Simulated
}

func (s *scriptedCaller) Call(ctx context.Context, req transport.Request) (routing.CallResult, error) {
	n := int(s.calls.Add(1))
	if s.after != nil {
		defer s.after()
	}
	if n <= s.failures {
		return routing.CallResult{}, transport.ErrNoAnswer
	}
	return s.sim.Call(ctx, req)
}

// flakyStore fails the failOn-th Put with err. A nil err makes that Put
// block until its context ends.
type flakyStore struct {
	*cases.Memory
	failOn int
	err    error
	puts   atomic.Int32
}

func (f *flakyStore) Put(ctx context.Context, c routing.Case) error {
	if int(f.puts.Add(1)) != f.failOn {
		return f.Memory.Put(ctx, c)
	}
	if f.err == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type failingClassifier struct {
	errs  []error
	calls atomic.Int32
}

func (f *failingClassifier) Classify(ctx context.Context, s classifier.Subject) (*routing.Advisory, error) {
	n := int(f.calls.Add(1))
	if n <= len(f.errs) {
		return nil, f.errs[n-1]
	}
	return classifier.Heuristic{}.Classify(ctx, s)
}

func byPatient(r *followup.Report) map[string]followup.Outcome {
	m := make(map[string]followup.Outcome, len(r.Cases))
	for _, o := range r.Cases {
		m[o.PatientID] = o
	}
	return m
}

func TestSubmitRoutesEveryPatient(t *testing.T) {
	h := newHarness(t)

	report, err := h.sys.Submit(context.Background(), followup.Request{Query: "Follow up with all patients"})
	require.NoError(t, err)

	assert.Equal(t, classifier.ActionFollowUp, report.Criteria.Action)
	assert.Equal(t, followup.Summary{Completed: 3, Escalated: 1, Total: 4}, report.Summary)

	out := byPatient(report)
	assert.Equal(t, routing.StatusEscalated, out["PAT003"].Case.Status)
	assert.True(t, out["PAT003"].Case.Notify)
	assert.Equal(t, routing.StatusCompleted, out["PAT004"].Case.Status)
	assert.Equal(t, "pass_through", out["PAT004"].Rule)

	stored, err := h.cases.Get(context.Background(), "PAT003")
	require.NoError(t, err)
	assert.Equal(t, routing.StatusEscalated, stored.Status)

	assert.Len(t, h.audit.Entries(), 4)
	assert.Len(t, h.storage.Keys(), 4)

	rc, err := h.sys.Transcript(context.Background(), "PAT003", out["PAT003"].SessionID)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Contains(t, string(body), "chest pain")

	_, err = h.sys.Transcript(context.Background(), "PAT003", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = h.sys.Transcript(context.Background(), "..", out["PAT003"].SessionID)
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestSubmitStatusCheckFlagsDiabetics(t *testing.T) {
	h := newHarness(t)

	report, err := h.sys.Submit(context.Background(), followup.Request{Query: "Check status of diabetic patients"})
	require.NoError(t, err)

	assert.Equal(t, classifier.ActionCheckStatus, report.Criteria.Action)
	assert.Equal(t, followup.Summary{Flagged: 2, Total: 2}, report.Summary)
	for _, o := range report.Cases {
		assert.Equal(t, routing.StatusFlagged, o.Case.Status)
		require.NotNil(t, o.Decision)
		assert.Contains(t, o.Decision.Rationale, "missing data")
	}
}

func TestSubmitPatientIDs(t *testing.T) {
	h := newHarness(t)

	report, err := h.sys.Submit(context.Background(), followup.Request{
		PatientIDs: []string{"PAT004", "PAT004"},
	})
	require.NoError(t, err)
	require.Len(t, report.Cases, 1)
	assert.Equal(t, "Elena Rodriguez", report.Cases[0].Name)

	_, err = h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT999"}})
	assert.Equal(t, 404, followup.MapHTTPStatus(err))
}

func TestSubmitEmptyQuery(t *testing.T) {
	h := newHarness(t)

	_, err := h.sys.Submit(context.Background(), followup.Request{Query: "   "})
	assert.ErrorIs(t, err, followup.ErrEmptyQuery)
}

func TestSubmitRetriesThenCloses(t *testing.T) {
	caller := &scriptedCaller{failures: 2, sim: transport.NewSimulated(&transport.Config{})}
	h := newHarness(t, withCaller(caller))

	report, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Equal(t, routing.StatusCompleted, o.Case.Status)
	assert.Equal(t, 3, o.Attempts)
	assert.Equal(t, 2, o.Case.RetryCount)

	entries := h.audit.Entries()
	require.Len(t, entries, 3)
	rules := []string{entries[0].Rule, entries[1].Rule, entries[2].Rule}
	assert.ElementsMatch(t, []string{"transport_failure", "transport_failure", "pass_through"}, rules)
}

func TestSubmitRetryExhaustionFlags(t *testing.T) {
	caller := &scriptedCaller{failures: 100, sim: transport.NewSimulated(&transport.Config{})}
	h := newHarness(t, withCaller(caller))

	report, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT001"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Equal(t, routing.StatusFlagged, o.Case.Status)
	assert.Equal(t, 4, o.Attempts)
	assert.Equal(t, 3, o.Case.RetryCount)
	require.NotNil(t, o.Decision)
	assert.Equal(t, routing.FlagForReview, o.Decision.Action)
	assert.Contains(t, o.Decision.Rationale, routing.RationaleTechnicalFailure)

	entries := h.audit.Entries()
	require.Len(t, entries, 4)
	converted := 0
	for _, e := range entries {
		if e.Effect == routing.EffectConverted {
			converted++
			assert.Contains(t, e.Error, routing.ErrRetryLimitExceeded.Error())
		}
	}
	assert.Equal(t, 1, converted)
}

func TestSubmitCancellationStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	caller := &scriptedCaller{failures: 100, after: cancel, sim: transport.NewSimulated(&transport.Config{})}
	h := newHarness(t, withCaller(caller), withRetryWaitCap("1m"))

	report, err := h.sys.Submit(ctx, followup.Request{PatientIDs: []string{"PAT002"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Equal(t, routing.StatusRetryScheduled, o.Case.Status)
	assert.Equal(t, 1, o.Attempts)
	assert.Equal(t, "retry pending", o.Note)
	assert.Equal(t, 1, report.Summary.Retrying)

	stored, err := h.cases.Get(context.Background(), "PAT002")
	require.NoError(t, err)
	assert.Equal(t, routing.StatusRetryScheduled, stored.Status)
	assert.Len(t, h.audit.Entries(), 1)
}

func TestSubmitClassifierTimeoutRetries(t *testing.T) {
	cls := &failingClassifier{errs: []error{context.DeadlineExceeded}}
	h := newHarness(t, withClassifier(cls))

	report, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Equal(t, routing.StatusCompleted, o.Case.Status)
	assert.Equal(t, 2, o.Attempts)

	entries := h.audit.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		if e.Rule == "transport_failure" {
			assert.Contains(t, e.Evidence.TransportError, "classifier timeout")
		}
	}
}

func TestSubmitClassifierErrorFlags(t *testing.T) {
	cls := &failingClassifier{errs: []error{errors.New("model overloaded")}}
	h := newHarness(t, withClassifier(cls))

	report, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Equal(t, routing.StatusFlagged, o.Case.Status)
	assert.Equal(t, "invalid_advisory", o.Rule)
	require.NotNil(t, o.Decision)
	assert.Equal(t, 0.0, o.Decision.Confidence)
}

func TestSubmitTerminalCaseIsNotRecontacted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.sys.Submit(ctx, followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)

	report, err := h.sys.Submit(ctx, followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Equal(t, routing.StatusCompleted, o.Case.Status)
	assert.Equal(t, 0, o.Attempts)
	assert.Equal(t, routing.NotePostTerminal, o.Note)

	entries := h.audit.Entries()
	require.Len(t, entries, 2)

	var ignored []audit.Entry
	for _, e := range entries {
		if e.Note == routing.NotePostTerminal {
			ignored = append(ignored, e)
		}
	}
	require.Len(t, ignored, 1)
	assert.Equal(t, routing.EffectIgnored, ignored[0].Effect)
	assert.Equal(t, routing.StatusCompleted, ignored[0].StatusBefore)
	assert.Equal(t, routing.StatusCompleted, ignored[0].StatusAfter)
	assert.Equal(t, routing.CloseLoop, ignored[0].Decision.Action)
	assert.Contains(t, ignored[0].Error, routing.ErrIllegalTransition.Error())

	stored, err := h.cases.Get(ctx, "PAT004")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
}

func TestSubmitPersistFailureIsAudited(t *testing.T) {
	store := &flakyStore{Memory: cases.NewMemory(), failOn: 2, err: errors.New("db down")}
	h := newHarness(t, withStore(store))

	report, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)

	o := report.Cases[0]
	assert.Contains(t, o.Error, "db down")
	assert.Equal(t, routing.StatusInProgress, o.Case.Status)

	entries := h.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, routing.CloseLoop, entries[0].Decision.Action)
	assert.Equal(t, routing.StatusInProgress, entries[0].StatusAfter)
	assert.Contains(t, entries[0].Error, "persist case: db down")
}

func TestSubmitPersistTimeout(t *testing.T) {
	store := &flakyStore{Memory: cases.NewMemory(), failOn: 1}
	h := newHarness(t, withStore(store), withPersistTimeout("20ms"))

	done := make(chan *followup.Report, 1)
	go func() {
		r, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT004"}})
		assert.NoError(t, err)
		done <- r
	}()

	select {
	case r := <-done:
		require.NotNil(t, r)
		assert.Contains(t, r.Cases[0].Error, context.DeadlineExceeded.Error())
		assert.Equal(t, 0, r.Cases[0].Attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("hung case store blocked the patient lock")
	}

	_, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT004"}})
	require.NoError(t, err)
}

func TestConcurrentSubmitsSerializePerPatient(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	reports := make([]*followup.Report, 8)
	for i := range reports {
		wg.Go(func() {
			r, err := h.sys.Submit(context.Background(), followup.Request{PatientIDs: []string{"PAT003"}})
			if assert.NoError(t, err) {
				reports[i] = r
			}
		})
	}
	wg.Wait()

	attempts := 0
	for _, r := range reports {
		require.NotNil(t, r)
		assert.Equal(t, routing.StatusEscalated, r.Cases[0].Case.Status)
		attempts += r.Cases[0].Attempts
	}
	assert.Equal(t, 1, attempts)

	var applied, ignored int
	for _, e := range h.audit.Entries() {
		switch e.Effect {
		case routing.EffectApplied:
			applied++
		case routing.EffectIgnored:
			ignored++
			assert.Equal(t, routing.NotePostTerminal, e.Note)
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, len(reports)-1, ignored)
}

func TestReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.sys.Submit(ctx, followup.Request{Query: "Check status of diabetic patients"})
	require.NoError(t, err)

	t.Run("invalid action", func(t *testing.T) {
		_, err := h.sys.Review(ctx, "PAT001", followup.ReviewCommand{Action: "RETRY_COMMUNICATION", ReviewedBy: "dr.house"})
		assert.ErrorIs(t, err, followup.ErrInvalidReview)
	})

	t.Run("reviewer required", func(t *testing.T) {
		_, err := h.sys.Review(ctx, "PAT001", followup.ReviewCommand{Action: "CLOSE_LOOP"})
		assert.ErrorIs(t, err, followup.ErrInvalidReview)
	})

	t.Run("unknown patient", func(t *testing.T) {
		_, err := h.sys.Review(ctx, "PAT999", followup.ReviewCommand{Action: "CLOSE_LOOP", ReviewedBy: "dr.house"})
		assert.ErrorIs(t, err, cases.ErrNotFound)
	})

	t.Run("flagged case resolves", func(t *testing.T) {
		c, err := h.sys.Review(ctx, "PAT001", followup.ReviewCommand{
			Action:     "close_loop",
			ReviewedBy: "dr.house",
			Notes:      "spoke with patient",
		})
		require.NoError(t, err)
		assert.Equal(t, routing.StatusCompleted, c.Status)
		require.NotNil(t, c.ReviewedBy)
		assert.Equal(t, "dr.house", *c.ReviewedBy)

		stored, err := h.cases.Get(ctx, "PAT001")
		require.NoError(t, err)
		assert.Equal(t, routing.StatusCompleted, stored.Status)
	})

	t.Run("resolved case rejects review", func(t *testing.T) {
		_, err := h.sys.Review(ctx, "PAT001", followup.ReviewCommand{Action: "ESCALATE_URGENT", ReviewedBy: "dr.house"})
		assert.ErrorIs(t, err, followup.ErrNotReviewable)
		assert.ErrorIs(t, err, routing.ErrIllegalTransition)
	})

	var reviews int
	for _, e := range h.audit.Entries() {
		if e.Kind == audit.KindReview {
			reviews++
			assert.True(t, strings.HasPrefix(e.Decision.Rationale, "reviewed by dr.house"))
		}
	}
	assert.Equal(t, 2, reviews)
}
