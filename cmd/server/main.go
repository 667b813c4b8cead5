package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stride-hr/presence-gateway/api/handlers"
	"github.com/stride-hr/presence-gateway/internal/audit"
	"github.com/stride-hr/presence-gateway/internal/auth"
	"github.com/stride-hr/presence-gateway/internal/config"
	"github.com/stride-hr/presence-gateway/internal/gateway"
	"github.com/stride-hr/presence-gateway/internal/health"
	"github.com/stride-hr/presence-gateway/internal/metrics"
	"github.com/stride-hr/presence-gateway/internal/registry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Ensure the audit database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Audit.DBPath), 0755); err != nil {
		logger.Error("failed to create audit directory", "error", err)
		os.Exit(1)
	}

	auditStore, err := audit.Open(cfg.Audit.DBPath)
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		os.Exit(1)
	}
	defer auditStore.Close()

	reg := registry.New()
	m := metrics.New(nil)

	tracker := health.NewTracker(health.Config{
		SweepInterval:         cfg.Heartbeat.SweepInterval,
		ExpectedInterval:      cfg.Heartbeat.ExpectedInterval,
		UnresponsiveThreshold: cfg.Heartbeat.UnresponsiveThreshold,
		ExpiredThreshold:      cfg.Heartbeat.ExpiredThreshold,
	}, nil, logger)

	gw := gateway.New(gateway.Options{
		MaxMessageChars: cfg.Limits.MaxMessageChars,
		SendBufferSize:  cfg.Limits.SendBufferSize,
		SuperAdminRole:  cfg.Access.SuperAdminRole,
		AdminRoles:      cfg.Access.AdminRoles,
	}, reg, tracker, auditStore, m, logger)

	// The sweep's expiry path cascades into the gateway, which owns the
	// exactly-once removal guard.
	tracker.SetExpireFunc(gw.Expire)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, 0)

	wsHandler := handlers.NewWebSocketHandler(gw, tokens)
	statsHandler := handlers.NewStatsHandler(gw, tokens)

	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "ok",
			"connections": reg.Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		wsHandler.RegisterRoutes(api)
		statsHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down server")
		cancel()
		auditStore.Close()
		os.Exit(0)
	}()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	logger.Info("starting server", "addr", addr)
	if err := r.Run(addr); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, or falls back to defaults when no path
// is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if envPath := os.Getenv("GATEWAY_CONFIG"); envPath != "" {
			path = envPath
		} else {
			return config.Default(), nil
		}
	}
	return config.LoadAndValidate(path)
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
