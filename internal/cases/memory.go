package cases

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/pagination"
)

// Memory is an in-process Store.
type Memory struct {
	mu         sync.RWMutex
	cases      map[string]routing.Case
	pagination pagination.Config
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{cases: make(map[string]routing.Case)}
	m.pagination.Finalize(nil)
	return m
}

func (m *Memory) Get(ctx context.Context, patientID string) (routing.Case, error) {
	if err := ctx.Err(); err != nil {
		return routing.Case{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cases[patientID]
	if !ok {
		return routing.Case{}, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, c routing.Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cases[c.PatientID] = c.Clone()
	return nil
}

func (m *Memory) List(
	_ context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[routing.Case], error) {
	page.Normalize(m.pagination)

	m.mu.RLock()
	matched := make([]routing.Case, 0, len(m.cases))
	for _, c := range m.cases {
		if filters.Match(c) && matchSearch(c, page.Search) {
			matched = append(matched, c.Clone())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b routing.Case) int {
		if n := b.UpdatedAt.Compare(a.UpdatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.PatientID, b.PatientID)
	})

	result := pagination.Slice(matched, page)
	return &result, nil
}

func matchSearch(c routing.Case, search *string) bool {
	if search == nil || *search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.PatientID), strings.ToLower(*search))
}
