// Package server wires the notekeeper process together: configuration,
// database and migrations, services, the HTTP server, the gRPC health
// server and the expired-token janitor, with graceful shutdown on signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/dmitrijs2005/notekeeper/internal/server/summarizer"
	"github.com/dmitrijs2005/notekeeper/internal/server/web"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/notekeeper/internal/server/grpc"
)

const tokenPurgeInterval = time.Hour

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	identity  *services.IdentityService
	notes     *services.NoteService
	summaries *services.SummaryService
	exports   *services.ExportService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	identity := services.NewIdentityService(db, rm, services.NewLogMailer(logger), logger, c)
	notes := services.NewNoteService(db, rm, logger)

	backend, err := summarizer.NewOpenRouter(summarizer.Config{
		APIKey:  c.OpenRouterAPIKey,
		BaseURL: c.OpenRouterBaseURL,
		Model:   c.OpenRouterModel,
		SiteURL: c.SiteURL,
		AppName: c.AppName,
	}, logger)

	var summaries *services.SummaryService
	switch {
	case err == nil:
		summaries = services.NewSummaryService(notes, backend, logger)
	case errors.Is(err, summarizer.ErrNotConfigured):
		logger.Warn(ctx, "OPENROUTER_API_KEY is not set, summarization is disabled")
		summaries = services.NewSummaryService(notes, nil, logger)
	default:
		_ = db.Close()
		return nil, fmt.Errorf("summarizer init error: %w", err)
	}

	if !c.ExportsEnabled() {
		logger.Info(ctx, "S3_BUCKET is not set, note export is disabled")
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		identity:  identity,
		notes:     notes,
		summaries: summaries,
		exports:   services.NewExportService(notes, c, logger),
	}, nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := web.NewHTTPServer(app.config.HTTPAddr, app.config.AppName, app.logger,
		app.identity, app.notes, app.summaries, app.exports)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.GRPCHealthAddr, app.logger, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startTokenJanitor deletes expired refresh tokens until ctx is done.
func (app *App) startTokenJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.identity.PurgeExpiredTokens(ctx)
			if err != nil {
				if ctx.Err() == nil {
					app.logger.Warn(ctx, "purging expired refresh tokens", "error", err)
				}
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

// Run blocks until SIGINT/SIGTERM/SIGQUIT or until one of the servers fails.
func (app *App) Run(ctx context.Context) {

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCHealthAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTokenJanitor(ctx, tokenPurgeInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.WithoutCancel(ctx), "closing database", "error", err)
	}
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
