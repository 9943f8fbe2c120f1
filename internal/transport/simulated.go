package transport

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/followup/internal/routing"
)

// Simulated produces scripted interaction outcomes derived from the
// patient's record and the query action. A configurable share of calls
// fail as unanswered.
type Simulated struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a simulated caller from finalized transport config.
func NewSimulated(cfg *Config) *Simulated {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Simulated{
		rate: cfg.Rate(),
		rng:  rand.New(rand.NewPCG(seed, seed)),
	}
}

// Call returns the scenario matching req.
func (s *Simulated) Call(ctx context.Context, req Request) (routing.CallResult, error) {
	if err := ctx.Err(); err != nil {
		return routing.CallResult{}, err
	}
	if s.fail() {
		return routing.CallResult{}, fmt.Errorf("%w: %s", ErrNoAnswer, req.PatientID)
	}
	return Scenario(req), nil
}

func (s *Simulated) fail() bool {
	if s.rate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.rate
}

var (
	urgentSymptoms  = []string{"chest pain", "shortness of breath", "severe", "emergency"}
	cardiacHistory  = []string{"heart disease", "cardiac", "myocardial"}
	diabeticHistory = []string{"diabetes", "diabetic"}
)

// Scenario scripts the outcome of an interaction:
//
//   - urgent symptoms with cardiac history report red flags
//   - diabetic status checks come back incomplete
//   - symptom reviews are hard to pin down
//   - anything else is a routine, complete call
func Scenario(req Request) routing.CallResult {
	p := req.Patient
	symptoms := strings.ToLower(strings.Join(p.Symptoms, " "))
	history := strings.ToLower(strings.Join(p.MedicalHistory, " "))

	switch {
	case containsAny(symptoms, urgentSymptoms) && containsAny(history, cardiacHistory):
		return routing.CallResult{
			Status:     "complete",
			Transcript: fmt.Sprintf("Patient %s reports persistent chest pain and shortness of breath. Blood pressure elevated at 160/95. Patient appears distressed and concerned. Pain rating 7/10.", p.Name),
			Data: map[string]any{
				"chest_pain_persistent":   true,
				"shortness_of_breath":     true,
				"blood_pressure_elevated": true,
				"patient_distressed":      true,
				"pain_severe":             true,
			},
			Missing:    []string{"detailed_pain_description", "exact_location", "radiation_pattern"},
			Confidence: ptr(0.60),
			Quality:    "poor",
			Duration:   300 * time.Second,
		}
	case containsAny(history, diabeticHistory) && req.Action == "check_status":
		return routing.CallResult{
			Status:     "complete",
			Transcript: fmt.Sprintf("Patient %s reports blood sugar levels fluctuating between 180-220. Taking Metformin but sometimes forgets evening dose. Experiencing increased fatigue and blurred vision.", p.Name),
			Data: map[string]any{
				"blood_sugar_high":        true,
				"medication_inconsistent": true,
				"fatigue_increased":       true,
				"blurred_vision":          true,
			},
			Missing:    []string{"exact_blood_sugar_readings", "medication_schedule", "diet_compliance"},
			Confidence: ptr(0.65),
			Quality:    "fair",
			Duration:   200 * time.Second,
		}
	case req.Action == "review" && len(p.Symptoms) > 0:
		return routing.CallResult{
			Status:     "incomplete",
			Reason:     "patient could not describe symptoms",
			Transcript: fmt.Sprintf("Patient %s reports symptoms are persisting. Difficulty describing exact nature of symptoms. Some confusion about medication timing.", p.Name),
			Data: map[string]any{
				"symptoms_persisting":  true,
				"medication_confusion": true,
			},
			Missing:    []string{"symptom_severity", "symptom_duration", "medication_effectiveness", "side_effects"},
			Confidence: ptr(0.55),
			Quality:    "poor",
			Duration:   150 * time.Second,
		}
	default:
		return routing.CallResult{
			Status:     "complete",
			Transcript: fmt.Sprintf("Patient %s reports feeling well. No new symptoms. Taking medications as prescribed. No concerns reported. Next appointment scheduled.", p.Name),
			Data: map[string]any{
				"feeling_well":               true,
				"no_new_symptoms":            true,
				"medication_adherence":       true,
				"no_concerns":                true,
				"next_appointment_scheduled": true,
			},
			Confidence: ptr(0.90),
			Quality:    "excellent",
			Duration:   120 * time.Second,
		}
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func ptr(v float64) *float64 { return &v }
