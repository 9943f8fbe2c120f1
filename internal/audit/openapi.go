package audit

import "github.com/JaimeStill/followup/pkg/openapi"

var spec = struct {
	List *openapi.Operation
	Find *openapi.Operation
}{
	List: &openapi.Operation{
		Summary: "List audit entries",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("patient_id", "string", "Patient identifier", false),
			openapi.QueryParam("session_id", "string", "Communication session", false),
			openapi.QueryParam("kind", "string", "decision or review", false),
			openapi.QueryParam("action", "string", "Final action", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of audit entries", "AuditPage"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Get an audit entry",
		Parameters: []*openapi.Parameter{openapi.UUIDParam("id", "Audit entry ID")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Audit entry", "AuditEntry"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

// Schemas returns the component schemas referenced by audit operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"AuditEntry": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            {Type: "string", Format: "uuid"},
				"kind":          {Type: "string", Enum: []any{string(KindDecision), string(KindReview)}},
				"session_id":    {Type: "string"},
				"patient_id":    {Type: "string"},
				"evidence":      {Type: "object", Description: "Normalized communication evidence"},
				"advisory":      {Type: "object", Description: "Raw classifier advisory"},
				"decision":      openapi.SchemaRef("Decision"),
				"rule":          {Type: "string"},
				"effect":        {Type: "string"},
				"status_before": {Type: "string"},
				"status_after":  {Type: "string"},
				"note":          {Type: "string"},
				"error":         {Type: "string"},
				"recorded_at":   {Type: "string", Format: "date-time"},
			},
		},
		"AuditPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf("AuditEntry"),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}
