// Package routes declares HTTP routes once for both the mux and the
// OpenAPI description.
package routes

import (
	"net/http"

	"github.com/JaimeStill/followup/pkg/openapi"
)

// Route is one method and pattern, relative to its group. OpenAPI, when
// set, documents it.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}

// Group shares a path prefix and OpenAPI tags across routes. Child group
// prefixes nest under the parent's.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	walk("", groups, func(path string, _ []string, route Route) {
		mux.HandleFunc(route.Method+" "+path, route.Handler)
	})
}

// Describe adds every documented route to spec.Paths. Group tags are
// applied to operations that carry none of their own.
func Describe(spec *openapi.Spec, groups ...Group) {
	walk("", groups, func(path string, tags []string, route Route) {
		if route.OpenAPI == nil {
			return
		}
		op := *route.OpenAPI
		if len(op.Tags) == 0 {
			op.Tags = tags
		}
		item, ok := spec.Paths[path]
		if !ok {
			item = &openapi.PathItem{}
			spec.Paths[path] = item
		}
		item.Set(route.Method, &op)
	})
}

func walk(parent string, groups []Group, fn func(path string, tags []string, route Route)) {
	for _, group := range groups {
		prefix := parent + group.Prefix
		for _, route := range group.Routes {
			fn(prefix+route.Pattern, group.Tags, route)
		}
		walk(prefix, group.Children, fn)
	}
}
