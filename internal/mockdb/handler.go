package mockdb

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/pkg/handlers"
	"github.com/JaimeStill/followup/pkg/routes"
)

// Handler serves the catalog over HTTP.
type Handler struct {
	catalog *Catalog
	apiKey  string
	logger  *slog.Logger
}

// NewHandler creates a Handler. A non-empty apiKey requires a matching
// bearer token on /api routes.
func NewHandler(catalog *Catalog, apiKey string, logger *slog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		apiKey:  apiKey,
		logger:  logger.With("handler", "mockdb"),
	}
}

// Routes returns the route groups served by the mock database.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/api",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/query", Handler: h.authorize(h.Query)},
				{Method: "GET", Pattern: "/patients", Handler: h.authorize(h.List)},
				{Method: "GET", Pattern: "/patients/{id}", Handler: h.authorize(h.Find)},
			},
		},
		{
			Prefix: "",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/health", Handler: h.Health},
			},
		},
	}
}

// Mux registers every route on a new ServeMux.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes()...)
	return mux
}

// Query answers a free-text patient query.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[directory.QueryRequest](w, r)
	if err != nil {
		handlers.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "database_query_failed",
			"message":  err.Error(),
			"patients": []directory.Patient{},
			"count":    0,
		})
		return
	}

	patients, _ := h.catalog.Query(r.Context(), req.Query)
	h.logger.Info("query", "query", req.Query, "source", req.Source, "count", len(patients))

	handlers.RespondJSON(w, http.StatusOK, directory.QueryResponse{
		Success:   true,
		Query:     strings.ToLower(req.Query),
		Patients:  patients,
		Count:     len(patients),
		Timestamp: time.Now().UTC(),
	})
}

// List returns every patient.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	patients := h.catalog.All()
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"patients": patients,
		"count":    len(patients),
	})
}

// Find returns one patient by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.catalog.Find(r.Context(), id)
	if err != nil {
		handlers.RespondJSON(w, http.StatusNotFound, map[string]string{
			"error":   "patient_not_found",
			"message": "Patient " + id + " not found",
		})
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"patient": p,
	})
}

// Health reports liveness and catalog size.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"service":            "mockdb",
		"timestamp":          time.Now().UTC(),
		"patients_available": h.catalog.Len(),
	})
}

func (h *Handler) authorize(next http.HandlerFunc) http.HandlerFunc {
	if h.apiKey == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+h.apiKey {
			handlers.RespondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}
