package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/followup/pkg/middleware"
)

const dashboard = "https://dashboard.clinic.test"

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func corsHandler(t *testing.T, cfg *middleware.CORSConfig, called *bool) http.Handler {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	h := corsHandler(t, &middleware.CORSConfig{}, nil)

	req := httptest.NewRequest("GET", "/cases", nil)
	req.Header.Set("Origin", dashboard)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin set while disabled: %s", got)
	}
	if got := rec.Header().Get("Vary"); got != "" {
		t.Errorf("vary set while disabled: %s", got)
	}
}

func TestCORSOrigins(t *testing.T) {
	h := corsHandler(t, &middleware.CORSConfig{Origins: []string{dashboard}}, nil)

	tests := []struct {
		origin string
		want   string
	}{
		{dashboard, dashboard},
		{strings.ToUpper(dashboard), strings.ToUpper(dashboard)},
		{"https://evil.test", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/cases", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("allow-origin: got %q, want %q", got, tt.want)
			}
			if got := rec.Header().Get("Vary"); got != "Origin" {
				t.Errorf("vary: got %q, want Origin", got)
			}
		})
	}
}

func TestCORSWildcard(t *testing.T) {
	h := corsHandler(t, &middleware.CORSConfig{Origins: []string{"*"}}, nil)

	req := httptest.NewRequest("GET", "/cases", nil)
	req.Header.Set("Origin", "https://any.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://any.test" {
		t.Errorf("allow-origin: got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	var called bool
	h := corsHandler(t, &middleware.CORSConfig{Origins: []string{dashboard}}, &called)

	req := httptest.NewRequest("OPTIONS", "/followups", nil)
	req.Header.Set("Origin", dashboard)
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight reached the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("allow-methods: got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("max-age: got %q", got)
	}
}

func TestCORSPlainOptionsReachesHandler(t *testing.T) {
	var called bool
	h := corsHandler(t, &middleware.CORSConfig{Origins: []string{dashboard}}, &called)

	req := httptest.NewRequest("OPTIONS", "/followups", nil)
	req.Header.Set("Origin", dashboard)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("OPTIONS without a preflight header should reach the handler")
	}
}

func TestCORSCredentials(t *testing.T) {
	allow := true
	h := corsHandler(t, &middleware.CORSConfig{Origins: []string{dashboard}, AllowCredentials: &allow}, nil)

	req := httptest.NewRequest("GET", "/cases", nil)
	req.Header.Set("Origin", dashboard)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow-credentials: got %q, want true", got)
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Setenv("TEST_CORS_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("TEST_CORS_CREDS", "true")
	t.Setenv("TEST_CORS_MAX_AGE", "120")

	cfg := middleware.CORSConfig{}
	err := cfg.Finalize(&middleware.CORSEnv{
		Origins:          "TEST_CORS_ORIGINS",
		AllowCredentials: "TEST_CORS_CREDS",
		MaxAge:           "TEST_CORS_MAX_AGE",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !cfg.Enabled() {
		t.Error("origins from env should enable CORS")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "https://b.test" {
		t.Errorf("origins: got %v", cfg.Origins)
	}
	if !cfg.Credentials() {
		t.Error("credentials should be allowed")
	}
	if cfg.MaxAge != 120 {
		t.Errorf("max_age: got %d, want 120", cfg.MaxAge)
	}
}

func TestCORSConfigInvalid(t *testing.T) {
	allow := true
	tests := []struct {
		name string
		cfg  middleware.CORSConfig
		env  map[string]string
	}{
		{name: "negative max age", cfg: middleware.CORSConfig{MaxAge: -1}},
		{name: "credentials with wildcard", cfg: middleware.CORSConfig{Origins: []string{"*"}, AllowCredentials: &allow}},
		{name: "bad credentials env", env: map[string]string{"TEST_CORS_CREDS": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if err := tt.cfg.Finalize(&middleware.CORSEnv{AllowCredentials: "TEST_CORS_CREDS"}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCORSConfigMerge(t *testing.T) {
	off := false
	base := middleware.CORSConfig{Origins: []string{"https://base.test"}, MaxAge: 600, AllowCredentials: &off}
	on := true
	base.Merge(&middleware.CORSConfig{Origins: []string{"https://overlay.test"}, AllowCredentials: &on})

	if base.Origins[0] != "https://overlay.test" {
		t.Errorf("origins: got %v", base.Origins)
	}
	if base.MaxAge != 600 {
		t.Errorf("max_age: got %d, want 600", base.MaxAge)
	}
	if !base.Credentials() {
		t.Error("credentials should follow the overlay")
	}

	base.Merge(&middleware.CORSConfig{})
	if !base.Enabled() || !base.Credentials() {
		t.Error("empty overlay must not reset fields")
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("body"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/cases?page=2", nil))

			out := buf.String()
			for _, want := range []string{tt.level, "uri=\"/cases?page=2\"", "bytes=4"} {
				if !strings.Contains(out, want) {
					t.Errorf("log %q missing %q", out, want)
				}
			}
		})
	}
}

func TestLoggerImplicitStatus(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.Logger(slog.New(slog.NewTextHandler(&buf, nil)))(http.HandlerFunc(ok))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("log %q missing status=200", buf.String())
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var chain middleware.Chain
	chain.Use(tag("a"))
	chain.Use(tag("b"))
	chain.Use(tag("c"))
	chain.Then(http.HandlerFunc(ok)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got := strings.Join(order, ""); got != "abc" {
		t.Errorf("order: got %s, want abc", got)
	}
}
