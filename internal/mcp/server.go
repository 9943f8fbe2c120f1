// Package mcp exposes follow-up requests, case lookups, clinician reviews
// and the audit trail as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/pagination"
)

const maxAuditLimit = 100

// ErrNoTrail is returned by list_audit when no queryable sink is configured.
var ErrNoTrail = errors.New("audit trail is not queryable with the configured sinks")

// Deps are the domain systems the tools call into. Trail may be nil.
type Deps struct {
	Followups followup.System
	Cases     cases.Store
	Trail     audit.Reader
	Logger    *slog.Logger
}

// Server wraps the MCP SDK server with the follow-up tools registered.
type Server struct {
	MCPServer *sdkmcp.Server

	followups followup.System
	cases     cases.Store
	trail     audit.Reader
	logger    *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(version string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "followup", Version: version}, nil),
		followups: deps.Followups,
		cases:     deps.Cases,
		trail:     deps.Trail,
		logger:    logger.With("system", "mcp"),
	}
	s.registerTools()
	return s
}

// Run serves the tools over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving mcp over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "submit_followup",
		Description: "Contact the patients a doctor's request names and route each call outcome. Returns where every case landed.",
	}, s.handleSubmit)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_case",
		Description: "Get the current follow-up case for a patient.",
	}, s.handleGetCase)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "review_case",
		Description: "Resolve a case flagged for doctor review with CLOSE_LOOP or ESCALATE_URGENT.",
	}, s.handleReview)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_audit",
		Description: "List the most recent audit entries, optionally for one patient.",
	}, s.handleListAudit)
}

type submitInput struct {
	Query      string   `json:"query,omitempty" jsonschema:"free-text follow-up request, e.g. follow up with diabetes patients from last week"`
	PatientIDs []string `json:"patient_ids,omitempty" jsonschema:"explicit patient ids; bypasses the directory query"`
}

type getCaseInput struct {
	PatientID string `json:"patient_id" jsonschema:"patient id, e.g. PAT001"`
}

type reviewInput struct {
	PatientID  string `json:"patient_id" jsonschema:"patient id of the flagged case"`
	Action     string `json:"action" jsonschema:"CLOSE_LOOP or ESCALATE_URGENT"`
	ReviewedBy string `json:"reviewed_by" jsonschema:"reviewing clinician"`
	Notes      string `json:"notes,omitempty" jsonschema:"optional review notes"`
}

type listAuditInput struct {
	PatientID string `json:"patient_id,omitempty" jsonschema:"only entries for this patient"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum entries to return (default 20, max 100)"`
}

// auditEntry flattens audit.Entry for tool output. Evidence and advisory
// payloads stay behind the HTTP API.
type auditEntry struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	SessionID    string    `json:"session_id"`
	PatientID    string    `json:"patient_id"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	Rationale    string    `json:"rationale"`
	Rule         string    `json:"rule,omitempty"`
	Effect       string    `json:"effect"`
	StatusBefore string    `json:"status_before"`
	StatusAfter  string    `json:"status_after"`
	Note         string    `json:"note,omitempty"`
	Error        string    `json:"error,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type listAuditOutput struct {
	Entries []auditEntry `json:"entries"`
	Total   int          `json:"total"`
}

func (s *Server) handleSubmit(
	ctx context.Context,
	_ *sdkmcp.CallToolRequest,
	in submitInput,
) (*sdkmcp.CallToolResult, followup.Report, error) {
	report, err := s.followups.Submit(ctx, followup.Request{
		Query:      in.Query,
		PatientIDs: in.PatientIDs,
	})
	if err != nil {
		return nil, followup.Report{}, fmt.Errorf("submit_followup: %w", err)
	}

	s.logger.Info(
		"follow-up submitted",
		"total", report.Summary.Total,
		"escalated", report.Summary.Escalated,
	)
	return nil, *report, nil
}

func (s *Server) handleGetCase(
	ctx context.Context,
	_ *sdkmcp.CallToolRequest,
	in getCaseInput,
) (*sdkmcp.CallToolResult, routing.Case, error) {
	if in.PatientID == "" {
		return nil, routing.Case{}, errors.New("get_case: patient_id is required")
	}

	c, err := s.cases.Get(ctx, in.PatientID)
	if err != nil {
		return nil, routing.Case{}, fmt.Errorf("get_case %s: %w", in.PatientID, err)
	}
	return nil, c, nil
}

func (s *Server) handleReview(
	ctx context.Context,
	_ *sdkmcp.CallToolRequest,
	in reviewInput,
) (*sdkmcp.CallToolResult, routing.Case, error) {
	c, err := s.followups.Review(ctx, in.PatientID, followup.ReviewCommand{
		Action:     in.Action,
		ReviewedBy: in.ReviewedBy,
		Notes:      in.Notes,
	})
	if err != nil {
		return nil, routing.Case{}, fmt.Errorf("review_case %s: %w", in.PatientID, err)
	}
	return nil, c, nil
}

func (s *Server) handleListAudit(
	ctx context.Context,
	_ *sdkmcp.CallToolRequest,
	in listAuditInput,
) (*sdkmcp.CallToolResult, listAuditOutput, error) {
	if s.trail == nil {
		return nil, listAuditOutput{}, ErrNoTrail
	}

	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, maxAuditLimit)

	var filters audit.Filters
	if in.PatientID != "" {
		filters.PatientID = &in.PatientID
	}

	page, err := s.trail.List(ctx, pagination.PageRequest{Page: 1, PageSize: limit}, filters)
	if err != nil {
		return nil, listAuditOutput{}, fmt.Errorf("list_audit: %w", err)
	}

	out := listAuditOutput{
		Entries: make([]auditEntry, 0, len(page.Data)),
		Total:   page.Total,
	}
	for _, e := range page.Data {
		out.Entries = append(out.Entries, flatten(e))
	}
	return nil, out, nil
}

func flatten(e audit.Entry) auditEntry {
	return auditEntry{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		SessionID:    e.SessionID,
		PatientID:    e.PatientID,
		Action:       string(e.Decision.Action),
		Confidence:   e.Decision.Confidence,
		Rationale:    e.Decision.Rationale,
		Rule:         e.Rule,
		Effect:       string(e.Effect),
		StatusBefore: string(e.StatusBefore),
		StatusAfter:  string(e.StatusAfter),
		Note:         e.Note,
		Error:        e.Error,
		RecordedAt:   e.RecordedAt,
	}
}
