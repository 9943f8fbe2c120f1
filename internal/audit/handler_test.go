package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/pagination"
)

func setupMux(h *audit.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func seededMemory(t *testing.T) (*audit.Memory, []audit.Entry) {
	t.Helper()
	mem := audit.NewMemory()
	e := newEmitter(t, mem, 1)

	var recorded []audit.Entry
	for i, id := range []string{"PAT001", "PAT002", "PAT001"} {
		entry := decisionEntry(id)
		entry.RecordedAt = fixedNow.Add(time.Duration(i) * time.Minute)
		if i == 2 {
			entry.Decision.Action = routing.RetryCommunication
		}
		recorded = append(recorded, e.Record(context.Background(), entry))
	}
	return mem, recorded
}

func TestHandlerList(t *testing.T) {
	mem, recorded := seededMemory(t)
	h := audit.NewHandler(mem, discardLogger(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	mux := setupMux(h)

	req := httptest.NewRequest(http.MethodGet, "/audit?patient_id=PAT001", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var page pagination.PageResult[audit.Entry]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, recorded[2].ID, page.Data[0].ID, "newest first")

	req = httptest.NewRequest(http.MethodGet, "/audit?action=retry_communication", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)
}

func TestHandlerFind(t *testing.T) {
	mem, recorded := seededMemory(t)
	mux := setupMux(audit.NewHandler(mem, discardLogger(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/audit/" + recorded[1].ID.String(), http.StatusOK},
		{"missing", "/audit/" + uuid.New().String(), http.StatusNotFound},
		{"malformed", "/audit/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit?patient_id=PAT001&effect=IGNORED&since=2026-03-01T00:00:00Z&action=bogus", nil)
	f := audit.FiltersFromQuery(req.URL.Query())

	require.NotNil(t, f.PatientID)
	assert.Equal(t, "PAT001", *f.PatientID)
	require.NotNil(t, f.Effect)
	assert.Equal(t, "ignored", *f.Effect)
	require.NotNil(t, f.Since)
	assert.Nil(t, f.Action)
}
