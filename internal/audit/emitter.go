package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Emitter records entries to a Sink on behalf of the routing pipeline.
// Record never returns an error: failed writes are logged and published on
// the Faults channel, and dropped when the channel is full.
type Emitter struct {
	sink     Sink
	logger   *slog.Logger
	timeout  time.Duration
	faults   chan Fault
	recorded atomic.Int64
	dropped  atomic.Int64
	now      func() time.Time
}

// NewEmitter creates an Emitter writing to sink with finalized audit config.
func NewEmitter(sink Sink, logger *slog.Logger, cfg *Config) *Emitter {
	return &Emitter{
		sink:    sink,
		logger:  logger.With("system", "audit"),
		timeout: cfg.WriteTimeoutDuration(),
		faults:  make(chan Fault, cfg.FaultBuffer),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for RecordedAt.
func (e *Emitter) SetClock(now func() time.Time) {
	e.now = now
}

// Faults delivers entries that could not be written.
func (e *Emitter) Faults() <-chan Fault {
	return e.faults
}

// Recorded returns the number of entries written successfully.
func (e *Emitter) Recorded() int64 {
	return e.recorded.Load()
}

// Dropped returns the number of faults discarded because the channel was full.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Record writes entry exactly once, assigning ID and RecordedAt when unset.
// The write outlives cancellation of ctx, bounded by the write timeout.
func (e *Emitter) Record(ctx context.Context, entry Entry) Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = e.now()
	}

	wctx := context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(wctx, e.timeout)
		defer cancel()
	}

	if err := e.write(wctx, entry); err != nil {
		e.fault(entry, err)
		return entry
	}

	e.recorded.Add(1)
	return entry
}

// Close closes the underlying sink when it holds resources.
func (e *Emitter) Close() error {
	if c, ok := e.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *Emitter) write(ctx context.Context, entry Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return e.sink.Write(ctx, entry)
}

func (e *Emitter) fault(entry Entry, err error) {
	if !errors.Is(err, ErrWriteFailed) {
		err = fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	e.logger.Error("audit write failed",
		"id", entry.ID,
		"patient_id", entry.PatientID,
		"session_id", entry.SessionID,
		"action", entry.Decision.Action,
		"error", err,
	)

	select {
	case e.faults <- Fault{Entry: entry, Err: err, At: e.now()}:
	default:
		e.dropped.Add(1)
		e.logger.Warn("audit fault dropped", "id", entry.ID)
	}
}
