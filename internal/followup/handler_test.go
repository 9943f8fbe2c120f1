package followup_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/routes"
	"github.com/JaimeStill/followup/pkg/storage"
)

type mockSystem struct {
	submitFn func(ctx context.Context, req followup.Request) (*followup.Report, error)
	reviewFn func(ctx context.Context, patientID string, cmd followup.ReviewCommand) (routing.Case, error)
	blobs    map[string]string
}

func (m *mockSystem) Submit(ctx context.Context, req followup.Request) (*followup.Report, error) {
	return m.submitFn(ctx, req)
}

func (m *mockSystem) Review(ctx context.Context, patientID string, cmd followup.ReviewCommand) (routing.Case, error) {
	return m.reviewFn(ctx, patientID, cmd)
}

func (m *mockSystem) Transcript(_ context.Context, patientID, sessionID string) (io.ReadCloser, error) {
	body, ok := m.blobs[patientID+"/"+sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (m *mockSystem) Handler() *followup.Handler { return nil }

func setupMux(sys followup.System) *http.ServeMux {
	h := followup.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerSubmit(t *testing.T) {
	sys := &mockSystem{
		submitFn: func(_ context.Context, req followup.Request) (*followup.Report, error) {
			if req.Query == "" && len(req.PatientIDs) == 0 {
				return nil, followup.ErrEmptyQuery
			}
			return &followup.Report{
				Query:   req.Query,
				Summary: followup.Summary{Completed: 1, Total: 1},
			}, nil
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid query", `{"query":"follow up with diabetic patients"}`, http.StatusOK},
		{"empty query", `{"query":""}`, http.StatusBadRequest},
		{"unknown field", `{"q":"x"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/followups", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}

			var report followup.Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if report.Summary.Completed != 1 {
				t.Errorf("summary.completed: got %d, want 1", report.Summary.Completed)
			}
		})
	}
}

func TestHandlerReview(t *testing.T) {
	sys := &mockSystem{
		reviewFn: func(_ context.Context, patientID string, cmd followup.ReviewCommand) (routing.Case, error) {
			switch patientID {
			case "PAT001":
				c := routing.NewCase(patientID)
				c.Status = routing.StatusCompleted
				c.ReviewedBy = &cmd.ReviewedBy
				return c, nil
			case "PAT002":
				return routing.Case{}, fmt.Errorf("%w: %w", followup.ErrNotReviewable, routing.ErrIllegalTransition)
			default:
				return routing.Case{}, followup.ErrInvalidReview
			}
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name    string
		patient string
		status  int
	}{
		{"applied", "PAT001", http.StatusOK},
		{"not reviewable", "PAT002", http.StatusConflict},
		{"invalid", "PAT003", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"action":"CLOSE_LOOP","reviewed_by":"dr.house"}`
			req := httptest.NewRequest("POST", "/followups/"+tt.patient+"/review", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestHandlerTranscript(t *testing.T) {
	mux := setupMux(&mockSystem{blobs: map[string]string{"PAT001/s-1": `{"patient_id":"PAT001"}`}})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"archived", "/followups/PAT001/transcripts/s-1", http.StatusOK},
		{"missing", "/followups/PAT001/transcripts/s-2", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusOK && rec.Body.String() != `{"patient_id":"PAT001"}` {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{followup.ErrEmptyQuery, http.StatusBadRequest},
		{followup.ErrInvalidReview, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", followup.ErrNotReviewable), http.StatusConflict},
		{fmt.Errorf("archive: %w", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := followup.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
