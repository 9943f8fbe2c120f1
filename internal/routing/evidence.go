package routing

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Tri is a three-valued observation.
type Tri int8

const (
	Unknown Tri = iota
	True
	False
)

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Observation is a single structured field. Exactly one of Flag or Value is
// set; a field that was not observed has no Observation at all.
type Observation struct {
	Flag  *bool   `json:"flag,omitempty"`
	Value *string `json:"value,omitempty"`
}

// Evidence is the normalized record of one interaction attempt.
type Evidence struct {
	PatientID        string                 `json:"patient_id"`
	SessionID        string                 `json:"session_id"`
	Fields           map[string]Observation `json:"fields"`
	Missing          []string               `json:"missing,omitempty"`
	RawSignal        string                 `json:"raw_signal,omitempty"`
	TransportError   string                 `json:"transport_error,omitempty"`
	Quality          string                 `json:"quality,omitempty"`
	SignalConfidence *float64               `json:"signal_confidence,omitempty"`
	Duration         time.Duration          `json:"duration,omitempty"`
}

// Failed reports whether the interaction failed technically.
func (e Evidence) Failed() bool {
	return e.TransportError != ""
}

// Flag returns the boolean observation for name. Fields that are absent or
// not boolean are Unknown.
func (e Evidence) Flag(name string) Tri {
	o, ok := e.Fields[name]
	if !ok || o.Flag == nil {
		return Unknown
	}
	if *o.Flag {
		return True
	}
	return False
}

// Value returns the enum or text observation for name.
func (e Evidence) Value(name string) (string, bool) {
	o, ok := e.Fields[name]
	if !ok || o.Value == nil {
		return "", false
	}
	return *o.Value, true
}

// Observed returns the sorted names of fields observed as true.
func (e Evidence) Observed() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		if e.Flag(name) == True {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// CallResult is what the transport collaborator reports for one attempt.
// A non-nil Err marks a hard failure before any content was exchanged.
type CallResult struct {
	Err        error
	Status     string
	Reason     string
	Transcript string
	Data       map[string]any
	Missing    []string
	Confidence *float64
	Quality    string
	Duration   time.Duration
}

// Build assembles the evidence record for one attempt. It is a pure
// transformation of its inputs.
func Build(sessionID, patientID string, result CallResult) Evidence {
	ev := Evidence{
		PatientID: patientID,
		SessionID: sessionID,
		Fields:    map[string]Observation{},
	}

	if result.Err != nil {
		ev.TransportError = result.Err.Error()
		if ev.TransportError == "" {
			ev.TransportError = ErrTransportFailure.Error()
		}
		ev.RawSignal = ev.TransportError
		return ev
	}

	for name, raw := range result.Data {
		if o, ok := observe(raw); ok {
			ev.Fields[name] = o
		}
	}
	if result.Status != "" {
		ev.Fields["status"] = Observation{Value: &result.Status}
	}
	if result.Reason != "" {
		ev.Fields["reason"] = Observation{Value: &result.Reason}
	}

	for _, name := range result.Missing {
		if _, seen := ev.Fields[name]; seen || slices.Contains(ev.Missing, name) {
			continue
		}
		ev.Missing = append(ev.Missing, name)
	}
	slices.Sort(ev.Missing)

	ev.RawSignal = result.Transcript
	if ev.RawSignal == "" {
		ev.RawSignal = result.Reason
	}
	ev.Quality = result.Quality
	ev.SignalConfidence = clonePtr(result.Confidence)
	ev.Duration = result.Duration

	return ev
}

func observe(raw any) (Observation, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
		return Observation{}, false
	case bool:
		return Observation{Flag: &v}, true
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case json.Number:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return Observation{Value: &s}, true
}
