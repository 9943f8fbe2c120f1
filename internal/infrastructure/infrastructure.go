// Package infrastructure assembles the shared systems every entry point
// needs: lifecycle coordination, logging, the optional Postgres pool, and
// blob storage.
package infrastructure

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/pkg/database"
	"github.com/JaimeStill/followup/pkg/lifecycle"
	"github.com/JaimeStill/followup/pkg/storage"
)

type system struct {
	name string
	sys  interface {
		Start(lc *lifecycle.Coordinator) error
	}
}

// Infrastructure holds the core systems shared by the API module and the CLI.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	// Database is nil when neither the case store nor the audit trail is
	// configured for Postgres.
	Database database.System
	Storage  storage.System
}

// NewLogger builds the process logger for cfg, writing to w.
func NewLogger(cfg *config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// New is NewWithLogger with a logger built from cfg.Log writing to stderr.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, NewLogger(&cfg.Log, os.Stderr))
}

// NewWithLogger constructs every configured system without starting any.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	var db database.System
	if cfg.UsesDatabase() {
		var err error
		if db, err = database.New(&cfg.Database, logger); err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
	}

	blobs, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	logger.Debug(
		"infrastructure ready",
		"env", cfg.Env(),
		"store", cfg.Store,
		"storage", cfg.Storage.Backend,
		"database", db != nil,
	)

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   blobs,
	}, nil
}

// DB returns the connection pool, or nil when Postgres is not configured.
func (i *Infrastructure) DB() *sql.DB {
	if i.Database == nil {
		return nil
	}
	return i.Database.Connection()
}

// Start registers the startup and shutdown hooks of each system with the
// lifecycle coordinator.
func (i *Infrastructure) Start() error {
	var systems []system
	if i.Database != nil {
		systems = append(systems, system{"database", i.Database})
	}
	systems = append(systems, system{"storage", i.Storage})

	for _, s := range systems {
		if err := s.sys.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("%s start failed: %w", s.name, err)
		}
	}
	return nil
}
