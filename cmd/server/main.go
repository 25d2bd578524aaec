/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the promo ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, apply command-line flag overrides
  2. Initialize SQLite store
  3. Pick the cache (Redis when configured, in-process otherwise)
  4. Ensure the bootstrap admin account exists
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: promos.db)
           Use ":memory:" for an in-memory database
  -redis   Redis address for the shared cache (default: none)

ENVIRONMENT:
  PROMO_PORT, PROMO_DB, PROMO_REDIS_ADDR,
  PROMO_BOOTSTRAP_USER, PROMO_BOOTSTRAP_TOKEN
  Flags win over environment values when both are set.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and a bootstrap admin
  PROMO_BOOTSTRAP_TOKEN=s3cret ./server -db="./data/promos.db"

  # Run with shared Redis cache
  ./server -redis="localhost:6379"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loyaltyworks/promo-ledger/api"
	"github.com/loyaltyworks/promo-ledger/cache"
	"github.com/loyaltyworks/promo-ledger/config"
	"github.com/loyaltyworks/promo-ledger/promo"
	"github.com/loyaltyworks/promo-ledger/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	redisAddr := flag.String("redis", cfg.RedisAddr, "Redis address for the shared cache")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Pick the cache layer
	var promoCache promo.Cache
	if *redisAddr != "" {
		rc := cache.NewRedis(*redisAddr)
		defer rc.Close()
		promoCache = rc
		log.Printf("Using Redis cache at %s", *redisAddr)
	} else {
		promoCache = cache.NewMemory()
	}

	// Make sure a fresh database is not locked out
	if cfg.BootstrapToken != "" {
		admin := promo.User{
			ID:        "bootstrap-admin",
			Username:  cfg.BootstrapUser,
			Token:     cfg.BootstrapToken,
			Superuser: true,
		}
		if err := store.SaveUser(context.Background(), admin); err != nil {
			log.Fatalf("Failed to bootstrap admin user: %v", err)
		}
		log.Printf("Bootstrap admin %q ready", cfg.BootstrapUser)
	}

	// Wire engine and router
	engine := promo.NewEngine(store, store, promoCache)
	handler := api.NewHandler(engine, store)
	router := api.NewRouter(handler, store)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Promo ledger starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api/v1", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
