package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"hdbsearch/internal/app"
	"hdbsearch/internal/config"
	"hdbsearch/internal/handler"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("HDB Housing Search")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.Logging.NewLogger()

	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	application, err := app.New(ctx, cfg, Version, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	router := handler.NewRouter(
		handler.NewQueryHandler(application.Pipeline),
		handler.NewSystemHandler(handler.BuildInfo{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
		}, application.Gateway),
		handler.CORSConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: cfg.Server.AllowedMethods,
			AllowedHeaders: cfg.Server.AllowedHeaders,
		},
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 API: http://%s/api/v1/query", addr)
	log.Printf("📈 Metrics: http://%s/metrics", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	if err := application.Close(); err != nil {
		logger.Error("Failed to close backends", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Failed to flush traces", "error", err)
	}

	log.Println("✅ Server stopped")
}
