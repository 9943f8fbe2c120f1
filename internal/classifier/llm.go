package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/followup/internal/agent"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/formatting"
)

const transcriptLimit = 500

// LLM classifies interactions and parses queries with a language model.
type LLM struct {
	client agent.Client
	logger *slog.Logger
}

// NewLLM creates an LLM classifier over client.
func NewLLM(client agent.Client, logger *slog.Logger) *LLM {
	return &LLM{
		client: client,
		logger: logger.With("system", "classifier"),
	}
}

type analysis struct {
	Outcome           string   `json:"outcome"`
	Action            string   `json:"action"`
	Reasoning         string   `json:"reasoning"`
	Rationale         string   `json:"rationale"`
	Confidence        *float64 `json:"confidence"`
	UrgentConditions  []string `json:"urgent_conditions"`
	NextSteps         []string `json:"next_steps"`
	TerminationReason string   `json:"termination_reason"`
}

// Classify asks the model for an outcome. Model errors are returned as is.
// Output that cannot be parsed yields an advisory carrying only Raw, which
// the engine treats as invalid.
func (l *LLM) Classify(ctx context.Context, s Subject) (*routing.Advisory, error) {
	content, err := l.client.Chat(ctx, analysisPrompt(s), "Analyze the communication outcome.")
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", s.Evidence.PatientID, err)
	}

	a, err := formatting.Parse[analysis](content)
	if err != nil {
		l.logger.Warn("unparseable advisory",
			"patient_id", s.Evidence.PatientID,
			"session_id", s.Evidence.SessionID,
			"error", fmt.Errorf("%w: %w", ErrUnparseable, err),
		)
		return &routing.Advisory{Raw: content}, nil
	}

	adv := &routing.Advisory{
		Action:           firstNonEmpty(a.Outcome, a.Action),
		Confidence:       a.Confidence,
		Rationale:        firstNonEmpty(a.Reasoning, a.Rationale),
		UrgentConditions: a.UrgentConditions,
		NextSteps:        a.NextSteps,
		Raw:              content,
	}
	if a.TerminationReason != "" && adv.Rationale != "" {
		adv.Rationale += " (" + a.TerminationReason + ")"
	}
	return adv, nil
}

// ParseQuery asks the model for structured criteria and falls back to
// keyword matching when the model fails or its output cannot be parsed.
// Cancellation of ctx is still reported.
func (l *LLM) ParseQuery(ctx context.Context, query string) (Criteria, error) {
	content, err := l.client.Chat(ctx, queryPrompt, "Query: "+query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Criteria{}, err
		}
		l.logger.Warn("query parsing fell back to keywords", "error", err)
		return ParseKeywords(query), nil
	}

	raw, err := formatting.Parse[map[string]any](content)
	if err != nil {
		l.logger.Warn("query parsing fell back to keywords", "error", err)
		return ParseKeywords(query), nil
	}

	fallback := ParseKeywords(query)
	c := Criteria{
		Action:           firstNonEmpty(text(raw["action"]), fallback.Action),
		TimeFilter:       text(raw["time_filter"]),
		ConditionFilter:  text(raw["condition_filter"]),
		SymptomFilter:    text(raw["symptom_filter"]),
		AgeFilter:        text(raw["age_filter"]),
		MedicationFilter: text(raw["medication_filter"]),
	}
	return c, nil
}

const queryPrompt = `You are a healthcare AI assistant that parses doctor queries into structured criteria.

Parse the following doctor query and extract:
1. action: one of follow_up, check_status, review, get_patients, general
2. time_filter: today, yesterday, last week, past month, or "N days/weeks/months ago"
3. condition_filter: a specific medical condition
4. symptom_filter: a specific symptom to look for
5. age_filter: an age bound such as "over 60"
6. medication_filter: current_medications or recent_changes

Return a single JSON object with these fields. Omit fields that do not apply.`

func analysisPrompt(s Subject) string {
	ev := s.Evidence
	p := s.Patient

	var sb strings.Builder
	sb.WriteString("You are a healthcare AI analyzing a patient communication outcome and making critical decisions about patient care.\n\n")

	sb.WriteString("Patient Data:\n")
	fmt.Fprintf(&sb, "- Medical History: %s\n", strings.Join(p.MedicalHistory, ", "))
	fmt.Fprintf(&sb, "- Current Symptoms: %s\n", strings.Join(p.Symptoms, ", "))
	fmt.Fprintf(&sb, "- Current Medications: %s\n\n", strings.Join(p.CurrentMedications, ", "))

	sb.WriteString("Communication Data:\n")
	fmt.Fprintf(&sb, "- Duration: %.0f seconds\n", ev.Duration.Round(time.Second).Seconds())
	fmt.Fprintf(&sb, "- Confidence: %s\n", optional(ev.SignalConfidence))
	fmt.Fprintf(&sb, "- Quality: %s\n", firstNonEmpty(ev.Quality, "unknown"))
	fmt.Fprintf(&sb, "- Data Obtained: %s\n", observations(ev))
	fmt.Fprintf(&sb, "- Missing Data: %s\n", strings.Join(ev.Missing, ", "))
	fmt.Fprintf(&sb, "- Transcript: %s\n\n", truncate(ev.RawSignal, transcriptLimit))

	sb.WriteString(`You must make a critical decision about this patient's care:

DECISION OPTIONS:
1. CLOSE_LOOP: Communication successful, all critical information obtained, patient stable, no urgent concerns
2. FLAG_FOR_DOCTOR_REVIEW: Missing important information, patient needs human medical review, non-urgent
3. ESCALATE_URGENT: Patient has serious symptoms, needs immediate medical attention, safety concern
4. RETRY_COMMUNICATION: Communication failed, technical issues, patient unresponsive, needs retry

CRITICAL DECISION FACTORS:
- Patient safety is the absolute priority
- Look for urgent red flags: chest pain, severe symptoms, medication problems, patient distress
- Consider data completeness and how critical missing data is
- Evaluate medication adherence and side effects
- Check for new or worsening symptoms

URGENT CONDITIONS TO ESCALATE:
- Chest pain, shortness of breath, severe pain
- High blood pressure, irregular heartbeat
- Severe medication side effects or non-compliance
- Suicidal thoughts or severe depression
- Signs of stroke, heart attack, or other emergencies
- Severe allergic reactions or drug interactions

Return a JSON object with:
- outcome: CLOSE_LOOP, FLAG_FOR_DOCTOR_REVIEW, ESCALATE_URGENT, or RETRY_COMMUNICATION
- reasoning: medical reasoning for the decision
- confidence: confidence in the decision as a number from 0.0 to 1.0
- urgent_conditions: urgent conditions detected (empty if none)
- next_steps: recommended actions
- termination_reason: why the communication ended`)

	return sb.String()
}

func observations(ev routing.Evidence) string {
	names := make([]string, 0, len(ev.Fields))
	for name := range ev.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		obs := ev.Fields[name]
		switch {
		case obs.Flag != nil:
			parts = append(parts, fmt.Sprintf("%s=%t", name, *obs.Flag))
		case obs.Value != nil:
			parts = append(parts, fmt.Sprintf("%s=%s", name, *obs.Value))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func optional(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.2f", *v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
