package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var (
	cardiac = directory.Patient{
		ID:             "PAT003",
		Name:           "Michael Chen",
		MedicalHistory: []string{"Heart Disease", "High Cholesterol"},
		Symptoms:       []string{"chest pain", "shortness of breath"},
	}
	diabetic = directory.Patient{
		ID:             "PAT001",
		Name:           "John Smith",
		MedicalHistory: []string{"Diabetes Type 2"},
		Symptoms:       []string{"blurred vision"},
	}
	anxious = directory.Patient{
		ID:             "PAT004",
		Name:           "Elena Rodriguez",
		MedicalHistory: []string{"Anxiety"},
		Symptoms:       []string{"insomnia"},
	}
)

func TestScenario(t *testing.T) {
	tests := []struct {
		name       string
		patient    directory.Patient
		action     string
		confidence float64
		quality    string
		missing    int
	}{
		{"urgent cardiac", cardiac, "follow_up", 0.60, "poor", 3},
		{"diabetic status", diabetic, "check_status", 0.65, "fair", 3},
		{"diabetic follow up is routine", diabetic, "follow_up", 0.90, "excellent", 0},
		{"symptom review", anxious, "review", 0.55, "poor", 4},
		{"routine", anxious, "follow_up", 0.90, "excellent", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := transport.Scenario(transport.NewRequest("s-1", tt.patient, tt.action))
			require.NotNil(t, res.Confidence)
			assert.Equal(t, tt.confidence, *res.Confidence)
			assert.Equal(t, tt.quality, res.Quality)
			assert.Len(t, res.Missing, tt.missing)
			assert.Contains(t, res.Transcript, tt.patient.Name)
			assert.NoError(t, res.Err)
		})
	}
}

func TestSimulatedFailureRate(t *testing.T) {
	always := 1.0
	never := 0.0

	failing := transport.NewSimulated(&transport.Config{FailureRate: &always, Seed: 7})
	_, err := failing.Call(context.Background(), transport.NewRequest("s-1", cardiac, "follow_up"))
	assert.ErrorIs(t, err, transport.ErrNoAnswer)

	reliable := transport.NewSimulated(&transport.Config{FailureRate: &never, Seed: 7})
	res, err := reliable.Call(context.Background(), transport.NewRequest("s-2", cardiac, "follow_up"))
	require.NoError(t, err)
	assert.Equal(t, "complete", res.Status)
}

func TestSimulatedHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transport.NewSimulated(&transport.Config{}).Call(ctx, transport.NewRequest("s-1", cardiac, "follow_up"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAT003", body["patient_id"])
		assert.Equal(t, "s-9", body["session_id"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"session_id": "s-9",
			"status": "complete",
			"transcript": "doing fine",
			"data_obtained": {"feeling_well": true, "side_effects": null},
			"missing_data": ["diet_compliance"],
			"confidence_score": 0.8,
			"conversation_quality": "good",
			"duration": 90
		}`))
	}))
	defer srv.Close()

	cfg := &transport.Config{Provider: transport.ProviderHTTP, URL: srv.URL, Token: "secret"}
	require.NoError(t, cfg.Finalize(nil))

	res, err := transport.New(cfg, discard()).Call(context.Background(), transport.NewRequest("s-9", cardiac, "follow_up"))
	require.NoError(t, err)

	assert.Equal(t, "complete", res.Status)
	assert.Equal(t, 90*time.Second, res.Duration)
	assert.Equal(t, []string{"diet_compliance"}, res.Missing)

	ev := routing.Build("s-9", "PAT003", res)
	assert.Equal(t, routing.True, ev.Flag("feeling_well"))
	assert.Equal(t, routing.Unknown, ev.Flag("side_effects"))
}

func TestHTTPCallFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "room unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := &transport.Config{Provider: transport.ProviderHTTP, URL: srv.URL}
	require.NoError(t, cfg.Finalize(nil))

	_, err := transport.NewHTTP(cfg, discard()).Call(context.Background(), transport.NewRequest("s-1", cardiac, "follow_up"))
	assert.ErrorIs(t, err, transport.ErrCallFailed)
	assert.Contains(t, err.Error(), "503")

	srv.Close()
	_, err = transport.NewHTTP(cfg, discard()).Call(context.Background(), transport.NewRequest("s-1", cardiac, "follow_up"))
	assert.True(t, errors.Is(err, transport.ErrCallFailed))
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &transport.Config{}
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, transport.ProviderSimulated, cfg.Provider)
		assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
		assert.Equal(t, 0.0, cfg.Rate())
	})

	t.Run("http requires url", func(t *testing.T) {
		cfg := &transport.Config{Provider: transport.ProviderHTTP}
		assert.Error(t, cfg.Finalize(nil))
	})

	t.Run("rate bounds", func(t *testing.T) {
		bad := 1.5
		cfg := &transport.Config{FailureRate: &bad}
		assert.Error(t, cfg.Finalize(nil))
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_TRANSPORT_FAILURE_RATE", "0.25")
		t.Setenv("TEST_TRANSPORT_PROVIDER", "simulated")

		cfg := &transport.Config{}
		require.NoError(t, cfg.Finalize(&transport.Env{
			Provider:    "TEST_TRANSPORT_PROVIDER",
			FailureRate: "TEST_TRANSPORT_FAILURE_RATE",
		}))
		assert.Equal(t, 0.25, cfg.Rate())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := &transport.Config{Provider: "carrier-pigeon"}
		assert.Error(t, cfg.Finalize(nil))
	})
}

func TestGoals(t *testing.T) {
	assert.Len(t, transport.Goals("follow_up"), 4)
	assert.Nil(t, transport.Goals("general"))
}
