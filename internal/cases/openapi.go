package cases

import "github.com/JaimeStill/followup/pkg/openapi"

var spec = struct {
	List *openapi.Operation
	Find *openapi.Operation
}{
	List: &openapi.Operation{
		Summary:     "List patient cases",
		Description: "Returns a page of cases ordered by last update. Filters combine with AND.",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Patient id substring", false),
			openapi.QueryParam("status", "string", "Case status", false),
			openapi.QueryParam("priority", "string", "NORMAL or HIGH", false),
			openapi.QueryParam("notify", "boolean", "Cases that requested notification", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of cases", "CasePage"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Get a patient case",
		Parameters: []*openapi.Parameter{openapi.PathParam("patientId", "Patient identifier")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Patient case", "Case"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

// Schemas returns the component schemas referenced by case operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Decision": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"action":     {Type: "string", Enum: []any{"CLOSE_LOOP", "FLAG_FOR_DOCTOR_REVIEW", "ESCALATE_URGENT", "RETRY_COMMUNICATION"}},
				"confidence": {Type: "number", Format: "double"},
				"rationale":  {Type: "string"},
				"concerns":   {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
		"Case": {
			Type:     "object",
			Required: []string{"patient_id", "status", "priority"},
			Properties: map[string]*openapi.Schema{
				"patient_id": {Type: "string"},
				"status": {Type: "string", Enum: []any{
					"PENDING", "IN_PROGRESS", "COMPLETED", "FLAGGED_FOR_REVIEW", "ESCALATED", "RETRY_SCHEDULED",
				}},
				"priority":       {Type: "string", Enum: []any{"NORMAL", "HIGH"}},
				"retry_count":    {Type: "integer"},
				"attempts":       {Type: "integer"},
				"last_decision":  openapi.SchemaRef("Decision"),
				"notify":         {Type: "boolean"},
				"next_follow_up": {Type: "string", Format: "date-time"},
				"retry_at":       {Type: "string", Format: "date-time"},
				"reviewed_by":    {Type: "string"},
				"reviewed_at":    {Type: "string", Format: "date-time"},
				"updated_at":     {Type: "string", Format: "date-time"},
			},
		},
		"CasePage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf("Case"),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}
