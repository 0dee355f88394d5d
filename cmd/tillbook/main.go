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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/tillbook/tillbook/internal/app"
	"github.com/tillbook/tillbook/internal/auth"
	"github.com/tillbook/tillbook/internal/close"
	closehttp "github.com/tillbook/tillbook/internal/close/http"
	ledgerhttp "github.com/tillbook/tillbook/internal/ledger/http"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
	periodhttp "github.com/tillbook/tillbook/internal/period/http"
	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/db"
	"github.com/tillbook/tillbook/internal/platform/store"
	"github.com/tillbook/tillbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	blobStore, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect store", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	metrics := observability.NewMetrics()
	notifier := period.NewNotifier()

	var dispatcher period.Dispatcher
	if cfg.UseQueue {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		dispatcher = jobs.NewQueueDispatcher(client, logger)
	} else {
		dispatcher = period.NewAsyncWriter(blobStore, logger, metrics)
	}

	repo := period.NewRepository(blobStore, dispatcher, notifier, logger)
	if err := activateStartupPeriod(ctx, cfg, repo, logger); err != nil {
		logger.Error("activate period", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(repo)
	closeService := close.NewService(repo, logger, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       metrics,
		AuthHandler:   auth.NewHandler(logger, authService),
		LedgerHandler: ledgerhttp.NewHandler(logger, repo, metrics),
		PeriodHandler: periodhttp.NewHandler(logger, repo),
		CloseHandler:  closehttp.NewHandler(logger, closeService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "redis":
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(client), func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}, nil
	case "postgres":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	default:
		logger.Warn("using in-memory store, data will not survive restarts")
		return store.NewMemory(), func() {}, nil
	}
}

// activateStartupPeriod loads the configured period, else the most recently
// stored one, else creates a fresh period so the engine always has an owner.
func activateStartupPeriod(ctx context.Context, cfg *app.Config, repo *period.Repository, logger *slog.Logger) error {
	id := cfg.ActivePeriod
	if id == "" {
		ids, err := repo.List(ctx)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			id = ids[len(ids)-1]
		}
	}
	if id == "" {
		created, err := repo.Create(ctx, cfg.DefaultPeriodName)
		if err != nil {
			return err
		}
		logger.Info("created initial period", slog.String("period", created))
		id = created
	}
	repo.SwitchActive(ctx, id)
	return nil
}
