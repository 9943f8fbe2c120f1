package module

import (
	"net/http"
	"slices"
	"strings"
)

// Router dispatches to the mounted module with the longest matching
// prefix. Paths no module claims fall through to a native ServeMux that
// holds process-level endpoints such as health probes.
type Router struct {
	modules []*Module
	native  *http.ServeMux
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{native: http.NewServeMux()}
}

// HandleNative registers handler on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Mount adds m. A module mounted at an existing prefix replaces it.
func (r *Router) Mount(m *Module) {
	r.modules = slices.DeleteFunc(r.modules, func(existing *Module) bool {
		return existing.prefix == m.prefix
	})
	r.modules = append(r.modules, m)
	slices.SortFunc(r.modules, func(a, b *Module) int {
		return len(b.prefix) - len(a.prefix)
	})
}

// ServeHTTP trims a trailing slash and dispatches the request.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimRight(p, "/")
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
	}

	for _, m := range r.modules {
		if m.matches(req.URL.Path) {
			m.ServeHTTP(w, req)
			return
		}
	}

	r.native.ServeHTTP(w, req)
}
