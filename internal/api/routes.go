package api

import (
	"net/http"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/pkg/openapi"
	"github.com/JaimeStill/followup/pkg/routes"
)

func groups(rt *Runtime, domain *Domain) []routes.Group {
	return []routes.Group{
		domain.Followups.Handler().Routes(),
		cases.NewHandler(domain.Cases, rt.Logger, rt.Pagination).Routes(),
		audit.NewHandler(domain.Trail, rt.Logger, rt.Pagination).Routes(),
	}
}

// Spec builds the OpenAPI description for the documented groups.
func Spec(rt *Runtime, gs ...routes.Group) *openapi.Spec {
	cfg := rt.Config

	spec := openapi.NewSpec(&cfg.API.OpenAPI, cfg.Version, cfg.API.BasePath)

	spec.Components.AddSchemas(cases.Schemas())
	spec.Components.AddSchemas(audit.Schemas())
	spec.Components.AddSchemas(followup.Schemas())

	routes.Describe(spec, gs...)
	return spec
}

func registerRoutes(mux *http.ServeMux, rt *Runtime, domain *Domain) error {
	gs := groups(rt, domain)

	serveSpec, err := Spec(rt, gs...).Handler()
	if err != nil {
		return err
	}

	mux.HandleFunc("GET /openapi.json", serveSpec)
	routes.Register(mux, gs...)
	return nil
}
