package classifier

import (
	"regexp"
	"strings"
)

// Query actions recognized in doctor requests.
const (
	ActionFollowUp    = "follow_up"
	ActionCheckStatus = "check_status"
	ActionReview      = "review"
	ActionGetPatients = "get_patients"
	ActionGeneral     = "general"
)

// Criteria is the structured form of a doctor's follow-up request.
type Criteria struct {
	Action           string `json:"action"`
	TimeFilter       string `json:"time_filter,omitempty"`
	ConditionFilter  string `json:"condition_filter,omitempty"`
	SymptomFilter    string `json:"symptom_filter,omitempty"`
	AgeFilter        string `json:"age_filter,omitempty"`
	MedicationFilter string `json:"medication_filter,omitempty"`
}

var (
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+days?\s+ago`),
		regexp.MustCompile(`\d+\s+weeks?\s+ago`),
		regexp.MustCompile(`\d+\s+months?\s+ago`),
		regexp.MustCompile(`last\s+week`),
		regexp.MustCompile(`past\s+month`),
		regexp.MustCompile(`yesterday`),
		regexp.MustCompile(`today`),
	}

	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`over\s+\d+`),
		regexp.MustCompile(`under\s+\d+`),
		regexp.MustCompile(`\d+\s+and\s+over`),
		regexp.MustCompile(`\d+\s+and\s+under`),
	}

	conditionTerms = []string{"diabetic", "diabetes", "hypertension", "asthma", "heart disease"}
	symptomTerms   = []string{"chest pain", "headache", "fever", "cough", "shortness of breath"}
)

// ParseKeywords extracts criteria from query by keyword and pattern
// matching. It never fails; unrecognized queries yield ActionGeneral.
func ParseKeywords(query string) Criteria {
	q := strings.ToLower(query)

	c := Criteria{
		Action:           keywordAction(q),
		TimeFilter:       firstMatch(q, timePatterns),
		ConditionFilter:  firstTerm(q, conditionTerms),
		AgeFilter:        firstMatch(q, agePatterns),
		MedicationFilter: medicationFilter(q),
	}

	if s := firstTerm(q, symptomTerms); s != "" {
		c.SymptomFilter = strings.ReplaceAll(s, " ", "_")
	}

	return c
}

func keywordAction(q string) string {
	switch {
	case strings.Contains(q, "follow up"), strings.Contains(q, "follow-up"):
		return ActionFollowUp
	case strings.Contains(q, "check"), strings.Contains(q, "status"):
		return ActionCheckStatus
	case strings.Contains(q, "review"):
		return ActionReview
	case strings.Contains(q, "get"), strings.Contains(q, "find"):
		return ActionGetPatients
	default:
		return ActionGeneral
	}
}

func medicationFilter(q string) string {
	if !strings.Contains(q, "medication") {
		return ""
	}
	if strings.Contains(q, "change") || strings.Contains(q, "adjust") {
		return "recent_changes"
	}
	return "current_medications"
}

func firstMatch(q string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindString(q); m != "" {
			return m
		}
	}
	return ""
}

func firstTerm(q string, terms []string) string {
	for _, t := range terms {
		if strings.Contains(q, t) {
			return t
		}
	}
	return ""
}
