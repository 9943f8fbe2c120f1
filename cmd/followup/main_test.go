package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/infrastructure"
	"github.com/JaimeStill/followup/internal/mockdb"
)

func writeConfig(t *testing.T) (configPath, auditPath string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	directory := httptest.NewServer(mockdb.NewHandler(mockdb.NewCatalog(), "", logger).Mux())
	t.Cleanup(directory.Close)

	dir := t.TempDir()
	t.Chdir(dir)

	auditPath = filepath.Join(dir, "audit.jsonl")
	body := fmt.Sprintf(`
store = "memory"

[log]
level = "error"

[directory]
url = %q

[transport]
seed = 1

[audit]
sinks = ["jsonl"]
path = %q
`, directory.URL, auditPath)

	configPath = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, auditPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubmitThenAudit(t *testing.T) {
	configPath, auditPath := writeConfig(t)

	out, err := execute(t, "submit", "--config", configPath, "--patient", "PAT004")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total, 1 completed")
	assert.Contains(t, out, "Elena Rodriguez")
	assert.Contains(t, out, "COMPLETED")

	out, err = execute(t, "audit", "--config", configPath, "--patient", "PAT004")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 entries")
	assert.Contains(t, out, "CLOSE_LOOP")

	out, err = execute(t, "audit", "--verify", auditPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 entries, 1 valid, 0 tampered, 0 malformed")
}

func TestServeRouterProbes(t *testing.T) {
	configPath, _ := writeConfig(t)

	cfg, err := config.LoadFile(configPath)
	require.NoError(t, err)
	infra, err := infrastructure.New(cfg)
	require.NoError(t, err)

	router, err := newRouter(cfg, infra)
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	status := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, status("/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, status("/readyz"))

	require.NoError(t, infra.Start())
	require.NoError(t, infra.Lifecycle.WaitForStartup())
	t.Cleanup(func() { _ = infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()) })

	assert.Equal(t, http.StatusOK, status("/readyz"))
	assert.Equal(t, http.StatusOK, status(cfg.API.BasePath+"/cases"))
}

func TestSubmitRequiresInput(t *testing.T) {
	submitFlags.patients = nil
	_, err := execute(t, "submit")
	assert.ErrorContains(t, err, "a query or at least one --patient is required")
}

func TestMockDBWatchRequiresSeed(t *testing.T) {
	_, err := execute(t, "mockdb", "--watch")
	assert.ErrorContains(t, err, "--watch requires --seed")
	mockdbFlags.watch = false
}
