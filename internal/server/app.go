// Package server initializes and runs the GPG Vault server: configuration,
// database and migrations, services, the admin engine, and the HTTP endpoint
// with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/gpgvault/internal/gpg"
	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/admin"
	"github.com/dmitrijs2005/gpgvault/internal/server/config"
	"github.com/dmitrijs2005/gpgvault/internal/server/http"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gpgvault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *http.Handler
}

// NewApp wires the full dependency graph and runs pending migrations.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	executor := gpg.NewCLIExecutor(cfg.GPGBinary, logger)
	userService := services.NewUserService(db, rm, executor, cfg, logger)
	gpgService := services.NewGPGService(db, rm, executor, userService, logger)
	adminEngine := admin.NewEngine(cfg, executor, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		handler: http.NewHandler(userService, gpgService, adminEngine, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until the context is cancelled or the listener fails, then
// drains in-flight requests and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &nethttp.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddrHTTP)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		app.logger.Error(ctx, "http server failed", "error", runErr.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "server stopped")
	return runErr
}
