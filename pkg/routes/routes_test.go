package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/followup/pkg/openapi"
	"github.com/JaimeStill/followup/pkg/routes"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func testGroups() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/cases",
			Tags:   []string{"Cases"},
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: ok, OpenAPI: &openapi.Operation{Summary: "List cases"}},
				{Method: "GET", Pattern: "/{patientId}", Handler: ok, OpenAPI: &openapi.Operation{Summary: "Find case", Tags: []string{"Custom"}}},
			},
			Children: []routes.Group{
				{
					Prefix: "/{patientId}/history",
					Routes: []routes.Route{
						{Method: "GET", Pattern: "", Handler: ok},
					},
				},
			},
		},
		{
			Prefix: "/followups",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: ok, OpenAPI: &openapi.Operation{Summary: "Submit"}},
			},
		},
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, testGroups()...)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list cases", "GET", "/cases", http.StatusOK},
		{"find case", "GET", "/cases/PAT001", http.StatusOK},
		{"nested child", "GET", "/cases/PAT001/history", http.StatusOK},
		{"submit", "POST", "/followups", http.StatusOK},
		{"wrong method", "GET", "/followups", http.StatusMethodNotAllowed},
		{"unknown path", "GET", "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{Title: "Test"}, "1.0.0")
	routes.Describe(spec, testGroups()...)

	if len(spec.Paths) != 3 {
		t.Fatalf("paths: got %d, want 3", len(spec.Paths))
	}

	list := spec.Paths["/cases"].Get
	if list == nil || list.Summary != "List cases" {
		t.Fatalf("list operation: got %+v", list)
	}
	if len(list.Tags) != 1 || list.Tags[0] != "Cases" {
		t.Errorf("group tags not applied: %v", list.Tags)
	}

	find := spec.Paths["/cases/{patientId}"].Get
	if len(find.Tags) != 1 || find.Tags[0] != "Custom" {
		t.Errorf("operation tags overridden: %v", find.Tags)
	}

	if _, ok := spec.Paths["/cases/{patientId}/history"]; ok {
		t.Error("undocumented route should not be described")
	}
	if spec.Paths["/followups"].Post == nil {
		t.Error("submit operation missing")
	}
}
