package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/api/dto"
	httptransport "github.com/spec-kit/user-directory/internal/api/http"
	"github.com/spec-kit/user-directory/internal/api/http/handlers"
	"github.com/spec-kit/user-directory/internal/cache"
	"github.com/spec-kit/user-directory/internal/config"
	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/observability"
	"github.com/spec-kit/user-directory/internal/persistence"
	"github.com/spec-kit/user-directory/internal/query"
	"github.com/spec-kit/user-directory/internal/repository"
	"github.com/spec-kit/user-directory/internal/service"
	"github.com/spec-kit/user-directory/internal/worker"
)

// storage is the selected relational backend.
type storage interface {
	persistence.SchemaExecer
	Ping(ctx context.Context) error
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, userRepo, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer db.Close()

	if cfg.Storage.RunMigrations {
		if err := persistence.RunMigrations(ctx, db, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var pageCache service.PageCache
	var redisPinger handlers.Pinger
	if pc := cache.NewPageCache(redis.ClientHandle(), cfg.Redis.CacheTTL(), logger); pc != nil {
		pageCache = pc
		redisPinger = redis
	}

	worker.StartAuditWorker(service.NewAuditService(dispatcher, pageCache, logger))

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		Cache:      pageCache,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Limits: query.Limits{
			DefaultPageSize: cfg.Pagination.DefaultLimit,
			MaxPageSize:     cfg.Pagination.MaxLimit,
		},
		Logger: logger,
	})

	app := httptransport.NewServer(httptransport.ServerConfig{
		AppName: cfg.App.Name,
		Middleware: httptransport.MiddlewareConfig{
			Logger:    logger,
			Metrics:   metrics,
			Timeout:   cfg.App.RequestTimeout(),
			RateLimit: cfg.RateLimit,
			CORS:      cfg.CORS,
		},
		Routes: httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, db, redisPinger),
			Users:   handlers.NewUsersHandler(userService, dto.NewValidator()),
			Metrics: metrics.Handler(),
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage, repository.UserRepository, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, repository.NewUserRepository(pg.PoolHandle()), nil
	default:
		lite, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, nil, err
		}
		return lite, repository.NewSQLiteUserRepository(lite.DB), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
