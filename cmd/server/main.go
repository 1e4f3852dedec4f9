// Scratchat - chat bridge for the Scratch polling client.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/scratchat/internal/api"
	"github.com/ashureev/scratchat/internal/bridge"
	"github.com/ashureev/scratchat/internal/chatlink"
	"github.com/ashureev/scratchat/internal/config"
	"github.com/ashureev/scratchat/internal/middleware"
	"github.com/ashureev/scratchat/internal/monitor"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadWithArgs(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting bridge", "port", cfg.Port, "chat_server", cfg.ChatAddr(), "debug", cfg.Debug)

	// Initialize services.
	var hub *monitor.Hub
	var events bridge.Publisher
	if cfg.Monitor.Enabled {
		hub = monitor.NewHub(cfg.Monitor.QueueSize)
		events = hub
	}

	b := bridge.New(bridge.Options{
		Connector: bridge.DialerConnector{Dialer: &chatlink.Dialer{
			Addr:             cfg.ChatAddr(),
			HandshakeTimeout: cfg.HandshakeTimeout,
			Logger:           logger,
		}},
		PolicyPort: cfg.Port,
		Debug:      cfg.Debug,
		Logger:     logger,
		Events:     events,
	})
	commandHandler := api.NewHandler(b)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if cfg.Debug {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins, api.BridgeErrorHeader))

	// Operator feed.
	if hub != nil {
		r.Get("/events", monitor.NewHandler(hub, cfg.AllowedOrigins).ServeHTTP)
	}

	// Commands from the polling client; the catch-all goes last.
	commandHandler.RegisterRoutes(r)

	// Note: /events holds its connection open, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	if hub != nil {
		hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if err := commandHandler.Close(); err != nil && !chatlink.IsExpectedCloseError(err) {
		slog.Warn("Failed to close chat link", "error", err)
	}

	slog.Info("Server stopped successfully")
}
