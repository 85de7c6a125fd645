package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/feedthegoat/content-service/internal/api/http"
	"github.com/feedthegoat/content-service/internal/api/http/handlers"
	"github.com/feedthegoat/content-service/internal/audit"
	"github.com/feedthegoat/content-service/internal/auth"
	"github.com/feedthegoat/content-service/internal/config"
	"github.com/feedthegoat/content-service/internal/events"
	"github.com/feedthegoat/content-service/internal/observability"
	"github.com/feedthegoat/content-service/internal/persistence"
	"github.com/feedthegoat/content-service/internal/repository"
	"github.com/feedthegoat/content-service/internal/service"
	"github.com/feedthegoat/content-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	refreshRepo := repository.NewRefreshTokenRepository(redis.Client)
	auditRepo := repository.NewAuditRepository(pool)
	podcastRepo := repository.NewPodcastRepository(pool)
	articleRepo := repository.NewArticleRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authService, err := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		RoleRepo:         roleRepo,
		RefreshTokenRepo: refreshRepo,
		Dispatcher:       dispatcher,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	contentService := service.NewContentService(podcastRepo, articleRepo, dispatcher)

	gate := auth.NewGate(authService.TokenManager(), roleRepo, cfg.Auth.RoleCacheTTL())

	metrics := observability.NewMetrics()
	auditWriter := audit.NewWriter(auditRepo, logger, metrics, cfg.Audit.QueueSize, cfg.Audit.WriteTimeout())
	auditWriter.Start()
	defer auditWriter.Close()
	recorder := audit.NewRecorder(auditWriter, cfg.Audit, metrics, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, recorder, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:     handlers.NewAuthHandler(authService),
		Podcasts: handlers.NewPodcastsHandler(contentService),
		Articles: handlers.NewArticlesHandler(contentService),
		Gate:     gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
