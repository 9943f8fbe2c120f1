package api

import (
	"database/sql"
	"log/slog"

	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/infrastructure"
	"github.com/JaimeStill/followup/pkg/lifecycle"
	"github.com/JaimeStill/followup/pkg/pagination"
	"github.com/JaimeStill/followup/pkg/storage"
)

// Runtime is the slice of infrastructure the API module builds on. DB is nil
// unless a component is configured for Postgres.
type Runtime struct {
	Config     *config.Config
	Lifecycle  *lifecycle.Coordinator
	Logger     *slog.Logger
	DB         *sql.DB
	Storage    storage.System
	Pagination pagination.Config
}

// NewRuntime scopes infra to the API module.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Config:     cfg,
		Lifecycle:  infra.Lifecycle,
		Logger:     infra.Logger.With("module", "api"),
		DB:         infra.DB(),
		Storage:    infra.Storage,
		Pagination: cfg.API.Pagination,
	}
}
