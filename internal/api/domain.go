package api

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/followup/internal/agent"
	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/classifier"
	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
)

// Domain holds the systems that make up the follow-up service.
type Domain struct {
	Cases     cases.Store
	Audit     *audit.Emitter
	Trail     audit.Reader
	Followups followup.System
}

// NewDomain wires every collaborator named in the runtime configuration.
// The audit emitter is closed and its faults drained on lifecycle shutdown.
func NewDomain(rt *Runtime) (*Domain, error) {
	cfg := rt.Config

	classify, parser, err := newClassifier(&cfg.Agent, rt)
	if err != nil {
		return nil, err
	}

	store, err := newCaseStore(cfg, rt)
	if err != nil {
		return nil, err
	}

	sink, trail, err := newAuditSink(&cfg.Audit, rt)
	if err != nil {
		return nil, err
	}
	emitter := audit.NewEmitter(sink, rt.Logger, &cfg.Audit)
	drainFaults(rt, emitter)

	followups := followup.New(&followup.Runtime{
		Directory:  directory.NewClient(&cfg.Directory, rt.Logger),
		Caller:     transport.New(&cfg.Transport, rt.Logger),
		Classifier: classify,
		Parser:     parser,
		Cases:      store,
		Audit:      emitter,
		Storage:    rt.Storage,
		Engine:     routing.NewEngine(&cfg.Routing),
		Updater:    routing.NewUpdater(&cfg.Routing),
		Logger:     rt.Logger,
	}, &cfg.Followup)

	return &Domain{
		Cases:     store,
		Audit:     emitter,
		Trail:     trail,
		Followups: followups,
	}, nil
}

// newClassifier returns the language-model classifier when a provider is
// configured and the offline heuristic otherwise.
func newClassifier(cfg *agent.Config, rt *Runtime) (classifier.Classifier, classifier.QueryParser, error) {
	client, err := agent.New(cfg)
	if errors.Is(err, agent.ErrDisabled) {
		rt.Logger.Info("language model disabled, using heuristic classifier")
		return classifier.Heuristic{}, classifier.Heuristic{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("agent init failed: %w", err)
	}

	llm := classifier.NewLLM(client, rt.Logger)
	return llm, llm, nil
}

func newCaseStore(cfg *config.Config, rt *Runtime) (cases.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return cases.NewMemory(), nil
	case config.StorePostgres:
		if rt.DB == nil {
			return nil, errors.New("postgres case store requires a database")
		}
		return cases.New(rt.DB, rt.Logger, rt.Pagination), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// newAuditSink builds the configured sinks. The returned reader serves the
// audit endpoints: postgres when configured, then memory, then the jsonl file.
func newAuditSink(cfg *audit.Config, rt *Runtime) (audit.Sink, audit.Reader, error) {
	var (
		sinks  audit.Multi
		reader audit.Reader
		file   *audit.File
	)

	for _, name := range cfg.Sinks {
		switch name {
		case audit.SinkMemory:
			m := audit.NewMemory()
			sinks = append(sinks, m)
			if reader == nil {
				reader = m
			}
		case audit.SinkFile:
			f, err := audit.OpenFile(cfg.Path, cfg.MaxSizeBytes(), cfg.ChecksumEnabled())
			if err != nil {
				sinks.Close()
				return nil, nil, fmt.Errorf("open audit file: %w", err)
			}
			sinks = append(sinks, f)
			file = f
		case audit.SinkPostgres:
			if rt.DB == nil {
				sinks.Close()
				return nil, nil, errors.New("postgres audit sink requires a database")
			}
			repo := audit.New(rt.DB, rt.Logger, rt.Pagination)
			sinks = append(sinks, repo)
			reader = repo
		}
	}

	if reader == nil && file != nil {
		reader = file
	}

	if len(sinks) == 1 {
		return sinks[0], reader, nil
	}
	return sinks, reader, nil
}

// drainFaults logs audit write failures until shutdown, then closes the
// emitter's sinks.
func drainFaults(rt *Runtime, emitter *audit.Emitter) {
	logger := rt.Logger.With("system", "audit")
	ctx := rt.Lifecycle.Context()

	go func() {
		for {
			select {
			case f := <-emitter.Faults():
				logger.Error("audit write failed",
					"entry", f.Entry.ID,
					"patient_id", f.Entry.PatientID,
					"session_id", f.Entry.SessionID,
					"error", f.Err,
				)
			case <-ctx.Done():
				return
			}
		}
	}()

	rt.Lifecycle.OnShutdown(func() {
		<-ctx.Done()
		if err := emitter.Close(); err != nil {
			logger.Error("audit close failed", "error", err)
		}
		logger.Info("audit closed", "recorded", emitter.Recorded(), "dropped", emitter.Dropped())
	})
}
