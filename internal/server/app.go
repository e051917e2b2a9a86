// Package server initializes and runs the letter service: it opens the
// database, applies migrations, wires services and the HTTP API, and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/evenfall/nightpost/internal/logging"
	"github.com/evenfall/nightpost/internal/server/config"
	"github.com/evenfall/nightpost/internal/server/httpapi"
	"github.com/evenfall/nightpost/internal/server/repositories/repomanager"
	"github.com/evenfall/nightpost/internal/server/services"
	"github.com/evenfall/nightpost/internal/server/statscache"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	srv    *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var cache *statscache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = statscache.New(rdb, cfg.StatsCacheTTL)
	}

	letters := services.NewLetterService(db, m, cache, logger, cfg)
	attachments := services.NewAttachmentService(cfg)

	handler := httpapi.NewHandler(letters, attachments, logger)
	router := httpapi.NewRouter(handler, []byte(cfg.SecretKey))
	srv := httpapi.NewServer(cfg.EndpointAddrHTTP, router, logger)

	return &App{config: cfg, logger: logger, db: db, srv: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	if err := app.srv.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server error", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
