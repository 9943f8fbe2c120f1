package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JaimeStill/followup/internal/api"
	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/infrastructure"
)

// session is a started runtime and domain for one command invocation.
type session struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	domain *api.Domain
}

func openSession() (*session, error) {
	cfg, err := config.LoadFile(rootFlags.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	domain, err := api.NewDomain(api.NewRuntime(cfg, infra))
	if err != nil {
		return nil, err
	}

	if err := infra.Start(); err != nil {
		return nil, err
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		_ = infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, err
	}

	return &session{cfg: cfg, infra: infra, domain: domain}, nil
}

// close flushes the audit emitter and releases infrastructure.
func (s *session) close() error {
	return s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
