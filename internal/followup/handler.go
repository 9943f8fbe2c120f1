package followup

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/followup/pkg/auth"
	"github.com/JaimeStill/followup/pkg/handlers"
	"github.com/JaimeStill/followup/pkg/routes"
)

// Handler provides HTTP endpoints for follow-up requests and reviews.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "followups"),
	}
}

// Routes returns the route group definition for follow-up endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/followups",
		Tags:   []string{"Follow-ups"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit, OpenAPI: spec.Submit},
			{Method: "POST", Pattern: "/{patientId}/review", Handler: h.Review, OpenAPI: spec.Review},
			{Method: "GET", Pattern: "/{patientId}/transcripts/{sessionId}", Handler: h.Transcript, OpenAPI: spec.Transcript},
		},
	}
}

// Submit runs a follow-up request and returns its report.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[Request](w, r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	report, err := h.sys.Submit(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Review applies a clinician decision to the flagged case identified by the
// patientId path parameter.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	cmd, err := handlers.DecodeJSON[ReviewCommand](w, r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if cmd.ReviewedBy == "" {
		if p, ok := auth.PrincipalFrom(r.Context()); ok {
			cmd.ReviewedBy = p.Identity()
		}
	}

	c, err := h.sys.Review(r.Context(), r.PathValue("patientId"), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// Transcript streams the archived record of one call session.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	rc, err := h.sys.Transcript(r.Context(), r.PathValue("patientId"), r.PathValue("sessionId"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("transcript stream interrupted", "error", err)
	}
}
