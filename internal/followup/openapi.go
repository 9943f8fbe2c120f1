package followup

import "github.com/JaimeStill/followup/pkg/openapi"

var spec = struct {
	Submit     *openapi.Operation
	Review     *openapi.Operation
	Transcript *openapi.Operation
}{
	Submit: &openapi.Operation{
		Summary: "Run a follow-up request",
		Description: "Selects patients by free-text query or explicit ids, contacts each one, " +
			"and routes every outcome. Blocks until every patient settles or the request is cancelled.",
		RequestBody: openapi.RequestBodyJSON("FollowupRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Follow-up report", "Report"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
	Review: &openapi.Operation{
		Summary:     "Review a flagged case",
		Description: "Resolves a FLAGGED_FOR_REVIEW case to CLOSE_LOOP or ESCALATE_URGENT.",
		Parameters:  []*openapi.Parameter{openapi.PathParam("patientId", "Patient identifier")},
		RequestBody: openapi.RequestBodyJSON("ReviewCommand", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated case", "Case"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Transcript: &openapi.Operation{
		Summary:     "Get an archived call transcript",
		Description: "Returns the transcript, evidence, advisory and decision recorded for one call session.",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("patientId", "Patient identifier"),
			openapi.PathParam("sessionId", "Call session identifier"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Archived transcript", "Transcript"),
			404: openapi.ResponseRef("NotFound"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
}

// Schemas returns the component schemas referenced by follow-up operations.
func Schemas() map[string]*openapi.Schema {
	str := func(desc string) *openapi.Schema { return &openapi.Schema{Type: "string", Description: desc} }
	count := &openapi.Schema{Type: "integer"}

	return map[string]*openapi.Schema{
		"FollowupRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"query":       str("Doctor's free-text request"),
				"patient_ids": {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
		"ReviewCommand": {
			Type:     "object",
			Required: []string{"action"},
			Properties: map[string]*openapi.Schema{
				"action":      {Type: "string", Enum: []any{"CLOSE_LOOP", "ESCALATE_URGENT"}},
				"reviewed_by": str("Reviewer; defaults to the authenticated caller"),
				"notes":       str(""),
			},
		},
		"Criteria": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"action":            str("follow_up, check_status, or review"),
				"time_filter":       str(""),
				"condition_filter":  str(""),
				"symptom_filter":    str(""),
				"age_filter":        str(""),
				"medication_filter": str(""),
			},
		},
		"Outcome": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"patient_id": str(""),
				"name":       str(""),
				"session_id": str("Last communication session"),
				"case":       openapi.SchemaRef("Case"),
				"decision":   openapi.SchemaRef("Decision"),
				"rule":       str("Routing rule that produced the decision"),
				"attempts":   count,
				"note":       str(""),
				"error":      str(""),
			},
		},
		"Report": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"query":    str(""),
				"criteria": openapi.SchemaRef("Criteria"),
				"cases":    openapi.ArrayOf("Outcome"),
				"summary": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"completed": count,
						"flagged":   count,
						"escalated": count,
						"retrying":  count,
						"total":     count,
					},
				},
				"completed_at": {Type: "string", Format: "date-time"},
			},
		},
		"Transcript": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"patient_id": str(""),
				"session_id": str(""),
				"transcript": str("Conversation text, when the transport returned one"),
				"evidence":   {Type: "object", Description: "Signals extracted from the call"},
				"advisory":   {Type: "object", Description: "Classifier advisory, when one ran"},
				"decision":   {Type: "object", Description: "Routing decision applied to the case"},
			},
		},
	}
}
