package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chepyr/session-tasks/internal/config"
	"github.com/chepyr/session-tasks/internal/logger"
	"github.com/chepyr/session-tasks/tasks-service/db"
	"github.com/chepyr/session-tasks/tasks-service/handlers"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbConn := initDB(cfg)
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("Error closing database connection", "error", err)
		}
	}()

	handler := initHandler(cfg, dbConn)
	if handler.RateLimiter != nil {
		defer handler.RateLimiter.Stop()
	}
	server := initServer(cfg, handler)
	startServer(server)
}

// connection failure at startup is fatal, the service never runs degraded
func initDB(cfg *config.Config) *sql.DB {
	dbConn, err := db.Connect(cfg.DBDriver, cfg.DatabaseDSN, cfg.MaxOpenConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", "driver", cfg.DBDriver, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx, dbConn, cfg.DBDriver); err != nil {
		logger.Fatal("Failed to prepare schema", "error", err)
	}

	logger.Info("Database connected", "driver", cfg.DBDriver, "maxOpenConns", cfg.MaxOpenConns)
	return dbConn
}

func initHandler(cfg *config.Config, dbConn *sql.DB) *handlers.Handler {
	handler := &handlers.Handler{
		TaskRepo:          db.NewTaskRepository(dbConn),
		EphemeralIdentity: cfg.EphemeralIdentity,
		RequestTimeout:    cfg.RequestTimeout,
		AllowedOrigins:    cfg.AllowedOrigins,
		Ping:              dbConn.PingContext,
	}
	if cfg.RateLimit > 0 {
		handler.RateLimiter = handlers.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.SessionSecret != "" {
		handler.Sessions = handlers.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	}
	return handler
}

func initServer(cfg *config.Config, handler *handlers.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func startServer(server *http.Server) {
	logger.Info("Starting tasks server", "addr", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		return
	}
	logger.Info("Server stopped")
}
