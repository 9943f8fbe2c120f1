package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/config"
	"github.com/JaimeStill/followup/internal/infrastructure"
	"github.com/JaimeStill/followup/internal/mockdb"
)

var mockdbFlags struct {
	addr   string
	seed   string
	apiKey string
	watch  bool
}

var mockdbCmd = &cobra.Command{
	Use:   "mockdb",
	Short: "Serve the mock patient database",
	Long: `Serves a YAML-seeded patient catalog over the directory HTTP contract.
Without --seed the built-in catalog is served. With --watch, edits to the
seed file are picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: runMockDB,
}

func init() {
	f := mockdbCmd.Flags()
	f.StringVar(&mockdbFlags.addr, "addr", ":3000", "Listen address")
	f.StringVar(&mockdbFlags.seed, "seed", "", "YAML patient seed file")
	f.StringVar(&mockdbFlags.apiKey, "api-key", os.Getenv("FOLLOWUP_MOCKDB_API_KEY"), "Bearer token required on /api routes")
	f.BoolVar(&mockdbFlags.watch, "watch", false, "Reload the seed file when it changes")
}

func runMockDB(cmd *cobra.Command, _ []string) error {
	if mockdbFlags.watch && mockdbFlags.seed == "" {
		return errors.New("--watch requires --seed")
	}

	logCfg := &config.LogConfig{}
	if err := logCfg.Finalize(); err != nil {
		return err
	}
	logger := infrastructure.NewLogger(logCfg, os.Stderr).With("system", "mockdb")

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := mockdb.NewCatalog()
	switch {
	case mockdbFlags.watch:
		if err := catalog.Watch(ctx, mockdbFlags.seed, logger); err != nil {
			return err
		}
	case mockdbFlags.seed != "":
		if err := catalog.Load(mockdbFlags.seed); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              mockdbFlags.addr,
		Handler:           mockdb.NewHandler(catalog, mockdbFlags.apiKey, logger).Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("mock database listening", "addr", mockdbFlags.addr, "patients", catalog.Len())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("mock database: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
