package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client queries the patient database service over HTTP.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client from finalized directory config.
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		logger: logger.With("system", "directory"),
	}
}

// Query posts text to /api/query and returns the matching patients.
func (c *Client) Query(ctx context.Context, text string) ([]Patient, error) {
	body := QueryRequest{
		Query:     text,
		Source:    Source,
		Timestamp: time.Now().UTC(),
	}

	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/query", body, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("directory query", "query", text, "count", len(resp.Patients))
	return resp.Patients, nil
}

// Find returns the patient with patientID.
func (c *Client) Find(ctx context.Context, patientID string) (*Patient, error) {
	var resp struct {
		Patient Patient `json:"patient"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/patients/"+url.PathEscape(patientID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Patient, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, res.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}
