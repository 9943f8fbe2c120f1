package cases

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/followup/pkg/handlers"
	"github.com/JaimeStill/followup/pkg/pagination"
	"github.com/JaimeStill/followup/pkg/routes"
)

// Handler provides read-only HTTP endpoints over patient cases.
type Handler struct {
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over any Store.
func NewHandler(store Store, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		store:      store,
		logger:     logger.With("handler", "cases"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for case endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/cases",
		Tags:   []string{"Cases"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: spec.List},
			{Method: "GET", Pattern: "/{patientId}", Handler: h.Find, OpenAPI: spec.Find},
		},
	}
}

// List returns a page of cases, most recently updated first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.store.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the case for the patientId path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), r.PathValue("patientId"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}
