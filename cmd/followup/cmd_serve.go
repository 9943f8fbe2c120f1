package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/api"
	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/infrastructure"
	"github.com/JaimeStill/followup/pkg/handlers"
	"github.com/JaimeStill/followup/pkg/module"
)

var serveFlags struct {
	port int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: "Serves the follow-up API under api.base_path, plus /healthz and /readyz.\n" +
		"Runs until SIGINT or SIGTERM, then drains in-flight requests and flushes the audit trail.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "Listen port, overriding server.port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(rootFlags.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveFlags.port != 0 {
		cfg.Server.Port = serveFlags.port
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}

	router, err := newRouter(cfg, infra)
	if err != nil {
		return err
	}

	if err := infra.Start(); err != nil {
		return err
	}

	srv := newHTTPServer(&cfg.Server, router, infra.Logger)
	if err := srv.listen(infra.Lifecycle, cfg.ShutdownTimeoutDuration()); err != nil {
		_ = infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr(), err)
	}

	infra.Logger.Info(
		"server started",
		"addr", srv.addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"store", cfg.Store,
	)

	go func() {
		if err := infra.Lifecycle.WaitForStartup(); err != nil {
			infra.Logger.Error("startup failed", "error", err)
			return
		}
		infra.Logger.Info("ready")
	}()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	infra.Logger.Info("shutting down")
	return infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
}

// newRouter mounts the API module beside the unauthenticated probes.
// /readyz answers 503 until every startup hook has completed.
func newRouter(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Router, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := module.NewRouter()
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": cfg.Version,
		})
	})
	router.HandleNative("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	router.Mount(apiModule)

	return router, nil
}
