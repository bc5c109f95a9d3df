package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lucashdiniz/finapi/internal/config"
	"github.com/lucashdiniz/finapi/internal/handler"
	"github.com/lucashdiniz/finapi/internal/logging"
	"github.com/lucashdiniz/finapi/internal/middleware"
	"github.com/lucashdiniz/finapi/internal/repository"
	"github.com/lucashdiniz/finapi/internal/service"
	"github.com/lucashdiniz/finapi/internal/service/statement"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("finapi", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           buildRouter(cfg, db),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildRouter wires every collaborator explicitly: repositories into
// services, services into handlers, handlers onto routes.
func buildRouter(cfg *config.Config, db *sql.DB) http.Handler {
	users := repository.NewUserRepository(db)
	statements := repository.NewStatementRepository(db)

	userSvc := service.NewUserService(users)
	statementSvc := statement.NewService(users, statements)

	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, cfg.JWTExpiry)
	userHandler := handler.NewUserHandler(userSvc)
	statementHandler := handler.NewStatementHandler(statementSvc)
	healthHandler := handler.NewHealthHandler(db)

	authn := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/users", userHandler.Create)
	mux.HandleFunc("POST /api/v1/sessions", authHandler.CreateSession)

	mux.Handle("GET /api/v1/profile", authn(http.HandlerFunc(userHandler.Profile)))
	mux.Handle("POST /api/v1/statements/deposit", authn(http.HandlerFunc(statementHandler.Deposit)))
	mux.Handle("POST /api/v1/statements/withdraw", authn(http.HandlerFunc(statementHandler.Withdraw)))
	mux.Handle("POST /api/v1/statements/transfer/{recipient_id}", authn(http.HandlerFunc(statementHandler.Transfer)))
	mux.Handle("GET /api/v1/statements/balance", authn(http.HandlerFunc(statementHandler.Balance)))
	mux.Handle("GET /api/v1/statements/{id}", authn(http.HandlerFunc(statementHandler.Operation)))

	return middleware.Recovery(middleware.Tracing(middleware.Logging(mux)))
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}
