/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tip distribution engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize SQLite store
  3. Create lifecycle controller and API handler
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: TIPS_PORT or 8080)
  -db      SQLite database path (default: TIPS_DB_PATH or tips.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  TIPS_PORT, TIPS_DB_PATH, TIPS_CORS_ORIGINS (comma separated),
  TIPS_CURRENCY_PLACES, TIPS_CASH_POLICY (day_roster | hours_weighted).
  A .env file in the working directory is loaded first when present.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/tip-engine/api"
	"github.com/warp/tip-engine/config"
	"github.com/warp/tip-engine/store/sqlite"
	"github.com/warp/tip-engine/tips"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("[Server] Invalid configuration: %v", err)
	}
	logger := cfg.Logger

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("[Server] Failed to initialize database: %v", err)
	}
	defer store.Close()

	controller := tips.NewController(store, cfg.Engine(), logger)
	handler := api.NewHandler(store, controller)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("[Server] Listening on http://localhost:%d (db %s)", cfg.Port, cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("[Server] Failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("[Server] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("[Server] Forced to shutdown: %v", err)
	}

	logger.Println("[Server] Stopped")
}
