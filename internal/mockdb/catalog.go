// Package mockdb is a stand-in for the patient database service. It serves
// a YAML-seeded patient catalog over the same HTTP contract the directory
// client speaks.
package mockdb

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/followup/internal/directory"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Patients []directory.Patient `yaml:"patients"`
}

// Catalog holds the patient records. It implements directory.Directory so
// it can stand in for the remote service in process.
type Catalog struct {
	mu       sync.RWMutex
	patients map[string]directory.Patient
	now      func() time.Time
}

// NewCatalog creates a Catalog loaded with the built-in seed.
func NewCatalog() *Catalog {
	c := &Catalog{now: time.Now}
	if err := c.LoadBytes(defaultSeed); err != nil {
		panic(fmt.Sprintf("mockdb: invalid built-in seed: %v", err))
	}
	return c
}

// SetClock replaces the time source used for recency filters.
func (c *Catalog) SetClock(now func() time.Time) {
	c.now = now
}

// Load replaces the catalog with the patients in the YAML file at path.
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	return c.LoadBytes(data)
}

// LoadBytes replaces the catalog with the patients in data. The catalog is
// unchanged if data is invalid.
func (c *Catalog) LoadBytes(data []byte) error {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}

	patients := make(map[string]directory.Patient, len(seed.Patients))
	for _, p := range seed.Patients {
		if p.ID == "" {
			return fmt.Errorf("parse seed: patient without patient_id")
		}
		patients[p.ID] = p
	}

	c.mu.Lock()
	c.patients = patients
	c.mu.Unlock()
	return nil
}

// Len returns the number of patients held.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patients)
}

// All returns every patient ordered by id.
func (c *Catalog) All() []directory.Patient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted(func(directory.Patient) bool { return true })
}

// Query matches text against patient conditions and symptoms. The first
// recognized topic selects the patients; an unrecognized query returns
// every patient. "last week" or "recent" keeps patients seen in the last
// seven days.
func (c *Catalog) Query(_ context.Context, text string) ([]directory.Patient, error) {
	q := strings.ToLower(text)
	match := topic(q)

	c.mu.RLock()
	patients := c.sorted(match)
	c.mu.RUnlock()

	if strings.Contains(q, "last week") || strings.Contains(q, "recent") {
		cutoff := c.now().AddDate(0, 0, -7).Format(time.DateOnly)
		patients = slices.DeleteFunc(patients, func(p directory.Patient) bool {
			return p.LastVisit < cutoff
		})
	}

	return patients, nil
}

// Find returns the patient with patientID.
func (c *Catalog) Find(_ context.Context, patientID string) (*directory.Patient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.patients[patientID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) sorted(keep func(directory.Patient) bool) []directory.Patient {
	out := make([]directory.Patient, 0, len(c.patients))
	for _, p := range c.patients {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b directory.Patient) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func topic(q string) func(directory.Patient) bool {
	switch {
	case containsAny(q, "diabetic", "diabetes"):
		return func(p directory.Patient) bool { return anyContains(p.MedicalHistory, "diabetes") }
	case containsAny(q, "vision", "eye"):
		return func(p directory.Patient) bool { return anyContains(p.Symptoms, "vision", "eye") }
	case containsAny(q, "heart", "cardiac"):
		return func(p directory.Patient) bool { return anyContains(p.MedicalHistory, "heart") }
	case containsAny(q, "depression", "anxiety", "mental"):
		return func(p directory.Patient) bool {
			return slices.ContainsFunc(p.MedicalHistory, func(h string) bool {
				h = strings.ToLower(h)
				return h == "depression" || h == "anxiety"
			})
		}
	default:
		return func(directory.Patient) bool { return true }
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func anyContains(values []string, subs ...string) bool {
	return slices.ContainsFunc(values, func(v string) bool {
		return containsAny(strings.ToLower(v), subs...)
	})
}
