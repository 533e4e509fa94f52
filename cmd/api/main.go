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

	"github.com/Dan9191/reasonable-comp/internal/app"
	"github.com/Dan9191/reasonable-comp/internal/config"
	"github.com/Dan9191/reasonable-comp/internal/handler"
	"github.com/Dan9191/reasonable-comp/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		stop()
		logger.Fatalf("%v", err)
	}
}

// run serves the API until ctx is cancelled or the listener fails. The wire
// is always closed before run returns.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	wire, err := app.NewWire(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer wire.Close()
	if err := wire.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}
	h := handler.NewHandler(wire.Service, logger)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID(), middleware.Logging(logger), middleware.Recover(logger))
	h.Routes(r)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s (baseline provider: %s)", addr, wire)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	return nil
}
