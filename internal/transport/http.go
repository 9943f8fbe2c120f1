package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JaimeStill/followup/internal/routing"
)

// HTTP places calls through the voice session service.
type HTTP struct {
	base   string
	token  string
	http   *http.Client
	logger *slog.Logger
}

// NewHTTP creates an HTTP caller from finalized transport config.
func NewHTTP(cfg *Config, logger *slog.Logger) *HTTP {
	return &HTTP{
		base:   strings.TrimRight(cfg.URL, "/"),
		token:  cfg.Token,
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		logger: logger.With("system", "transport"),
	}
}

type sessionRequest struct {
	SessionID string   `json:"session_id"`
	PatientID string   `json:"patient_id"`
	Name      string   `json:"patient_name"`
	Action    string   `json:"action"`
	History   []string `json:"medical_history"`
	Meds      []string `json:"current_medications"`
	Symptoms  []string `json:"symptoms"`
	Goals     []string `json:"communication_goals"`
}

type sessionResponse struct {
	SessionID  string         `json:"session_id"`
	Status     string         `json:"status"`
	Reason     string         `json:"reason"`
	Transcript string         `json:"transcript"`
	Data       map[string]any `json:"data_obtained"`
	Missing    []string       `json:"missing_data"`
	Confidence *float64       `json:"confidence_score"`
	Quality    string         `json:"conversation_quality"`
	Duration   float64        `json:"duration"`
}

// Call posts the session to <url>/sessions and waits for its outcome.
// Network errors, non-2xx statuses and undecodable bodies are transport
// failures.
func (h *HTTP) Call(ctx context.Context, req Request) (routing.CallResult, error) {
	body, err := json.Marshal(sessionRequest{
		SessionID: req.SessionID,
		PatientID: req.PatientID,
		Name:      req.Patient.Name,
		Action:    req.Action,
		History:   req.Patient.MedicalHistory,
		Meds:      req.Patient.CurrentMedications,
		Symptoms:  req.Patient.Symptoms,
		Goals:     req.Goals,
	})
	if err != nil {
		return routing.CallResult{}, fmt.Errorf("encode session: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/sessions", bytes.NewReader(body))
	if err != nil {
		return routing.CallResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.token)
	}

	res, err := h.http.Do(httpReq)
	if err != nil {
		return routing.CallResult{}, fmt.Errorf("%w: %w", ErrCallFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return routing.CallResult{}, fmt.Errorf("%w: status %d: %s", ErrCallFailed, res.StatusCode, strings.TrimSpace(string(b)))
	}

	var out sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return routing.CallResult{}, fmt.Errorf("%w: decode response: %w", ErrCallFailed, err)
	}

	h.logger.Info("session complete",
		"patient_id", req.PatientID,
		"session_id", req.SessionID,
		"status", out.Status,
	)

	return routing.CallResult{
		Status:     out.Status,
		Reason:     out.Reason,
		Transcript: out.Transcript,
		Data:       out.Data,
		Missing:    out.Missing,
		Confidence: out.Confidence,
		Quality:    out.Quality,
		Duration:   time.Duration(out.Duration * float64(time.Second)),
	}, nil
}
