package openapi

import "maps"

// errorResponses are the shared error replies, keyed by component name.
var errorResponses = map[string]string{
	"BadRequest":   "Invalid request",
	"Unauthorized": "Missing or invalid bearer token",
	"NotFound":     "Resource not found",
	"Conflict":     "Request conflicts with the current case state",
	"BadGateway":   "Upstream collaborator unavailable",
}

// NewComponents seeds the error schema, the page request shape, and one
// component response per shared error reply.
func NewComponents() *Components {
	c := &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number, starting at 1", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 20},
					"search":    {Type: "string", Description: "Case-insensitive substring match"},
					"sort":      {Type: "string", Description: "Comma-separated fields, - prefix for descending", Example: "-updated_at"},
				},
			},
		},
		Responses: make(map[string]*Response, len(errorResponses)),
	}
	for name, desc := range errorResponses {
		c.Responses[name] = &Response{Description: desc, Content: jsonContent(SchemaRef("Error"))}
	}
	return c
}

// AddSchemas merges schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
