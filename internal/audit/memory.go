package audit

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/followup/pkg/pagination"
)

// Memory keeps entries in process. It backs tests and deployments without
// a database, and can be told to fail writes.
type Memory struct {
	mu         sync.RWMutex
	entries    []Entry
	fail       error
	pagination pagination.Config
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	m := &Memory{}
	m.pagination.Finalize(nil)
	return m
}

// FailWith makes subsequent writes return err. A nil err restores writes.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) Write(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}

	for _, existing := range m.entries {
		if existing.ID == e.ID {
			return ErrDuplicate
		}
	}

	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of every recorded entry in write order.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries)
}

func (m *Memory) List(
	_ context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(m.pagination)

	m.mu.RLock()
	matched := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if filters.Match(e) && matchSearch(e, page.Search) {
			matched = append(matched, e)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b Entry) int {
		return b.RecordedAt.Compare(a.RecordedAt)
	})

	result := pagination.Slice(matched, page)
	return &result, nil
}

func (m *Memory) Find(_ context.Context, id uuid.UUID) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func matchSearch(e Entry, search *string) bool {
	if search == nil || *search == "" {
		return true
	}
	s := strings.ToLower(*search)
	return strings.Contains(strings.ToLower(e.PatientID), s) ||
		strings.Contains(strings.ToLower(e.SessionID), s) ||
		strings.Contains(strings.ToLower(e.Decision.Rationale), s) ||
		strings.Contains(strings.ToLower(e.Note), s)
}
