// Package module mounts independently configured HTTP modules under path
// prefixes of a single Router.
package module

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JaimeStill/followup/pkg/middleware"
)

// Module serves an inner handler beneath a path prefix. The inner handler
// sees paths relative to the prefix and runs behind the module's own
// middleware chain.
type Module struct {
	prefix string
	inner  http.Handler
	chain  middleware.Chain

	once    sync.Once
	handler http.Handler
}

// New creates a Module mounted at prefix (e.g. "/api" or "/api/v1").
// It panics on a malformed prefix.
func New(prefix string, inner http.Handler) *Module {
	prefix, err := cleanPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, inner: inner}
}

// Prefix returns the mount prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends mw to the module chain. Middleware added after the first
// request is ignored.
func (m *Module) Use(mw middleware.Middleware) {
	m.chain.Use(mw)
}

// Handler returns the inner handler wrapped in the module chain.
func (m *Module) Handler() http.Handler {
	m.once.Do(func() {
		m.handler = m.chain.Then(m.inner)
	})
	return m.handler
}

// ServeHTTP strips the prefix and dispatches to Handler.
func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.Handler().ServeHTTP(w, stripPrefix(r, m.prefix))
}

func (m *Module) matches(path string) bool {
	return path == m.prefix || strings.HasPrefix(path, m.prefix+"/")
}

func stripPrefix(r *http.Request, prefix string) *http.Request {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" {
		rest = "/"
	}

	r2 := r.Clone(r.Context())
	u := *r.URL
	u.Path = rest
	u.RawPath = ""
	r2.URL = &u
	return r2
}

func cleanPrefix(prefix string) (string, error) {
	if !strings.HasPrefix(prefix, "/") {
		return "", fmt.Errorf("module prefix must start with /: %q", prefix)
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return "", fmt.Errorf("module prefix cannot be the root path")
	}
	if _, err := url.ParseRequestURI(prefix); err != nil || strings.ContainsAny(prefix, "?#{}") {
		return "", fmt.Errorf("invalid module prefix: %q", prefix)
	}
	return prefix, nil
}
