/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inventory engine server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load YAML config
  2. Build the zap logger
  3. Open the save-document backend (file or sqlite)
  4. Start the inventory engine and attach display subscribers
  5. Load persisted state if one exists
  6. Serve HTTP until SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -config  Path to YAML config (optional; defaults apply without one)
  -port    Override server.port from the config
  -store   Override storage.path from the config

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections (30s drain)
  2. Save a final snapshot
  3. Close the engine (drains queued mutations)
  4. Exit

EXAMPLES:
  # Defaults: file backend, ./inventory.json, port 8080
  ./server

  # Explicit config
  ./server -config=./config.yaml

SEE ALSO:
  - config/config.go: File format
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/warp/inventory-engine/api"
	"github.com/warp/inventory-engine/config"
	"github.com/warp/inventory-engine/display"
	"github.com/warp/inventory-engine/generic"
	"github.com/warp/inventory-engine/items"
	"github.com/warp/inventory-engine/store/file"
	"github.com/warp/inventory-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "path to YAML config file")
	port := flag.Int("port", 0, "override HTTP port")
	storePath := flag.String("store", "", "override save path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *storePath != "" {
		cfg.Storage.Path = *storePath
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Save-document backend
	docStore, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage backend: %w", err)
	}
	defer closeStore()

	// Engine
	inv := items.New(generic.WithLogger[items.ItemID, items.Count](logger))
	defer inv.Close()
	display.Attach(inv.Engine, logger)

	// Restore persisted state; a missing save just means first run.
	ctx := context.Background()
	if err := inv.Load(ctx, docStore); err != nil && !errors.Is(err, generic.ErrSaveNotFound) {
		return fmt.Errorf("load inventory: %w", err)
	}

	handler := api.NewHandler(inv, docStore, logger)
	handler.BackendName = cfg.Storage.Backend
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	rootCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("backend", cfg.Storage.Backend),
			zap.String("path", cfg.Storage.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		// Final snapshot so a clean stop never loses acknowledged state.
		if err := inv.Save(shutdownCtx, docStore); err != nil {
			logger.Error("final save failed", zap.Error(err))
		}
		if st, ok := docStore.(*sqlite.Store); ok {
			if err := st.Prune(shutdownCtx, cfg.Storage.KeepHistory); err != nil {
				logger.Warn("save history prune failed", zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStore(cfg config.StorageConfig) (generic.DocumentStore, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return file.New(cfg.Path), func() {}, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
