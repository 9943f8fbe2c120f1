// Package api assembles the API module: the follow-up domain, its routes,
// and the module middleware stack.
package api

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/infrastructure"
	"github.com/JaimeStill/followup/pkg/auth"
	"github.com/JaimeStill/followup/pkg/middleware"
	"github.com/JaimeStill/followup/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// When an OIDC issuer is configured every API route requires a bearer token.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	rt := NewRuntime(cfg, infra)

	domain, err := NewDomain(rt)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, rt, domain); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(rt.Logger))

	if cfg.API.Auth.Enabled() {
		verifier, err := auth.New(infra.Lifecycle.Context(), &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
		m.Use(auth.Middleware(verifier, rt.Logger))
	}

	return m, nil
}
