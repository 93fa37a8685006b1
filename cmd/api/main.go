package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/workspace-service/internal/api/http"
	"github.com/spec-kit/workspace-service/internal/api/http/handlers"
	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/config"
	"github.com/spec-kit/workspace-service/internal/events"
	"github.com/spec-kit/workspace-service/internal/observability"
	"github.com/spec-kit/workspace-service/internal/persistence"
	"github.com/spec-kit/workspace-service/internal/ratelimit"
	"github.com/spec-kit/workspace-service/internal/repository"
	"github.com/spec-kit/workspace-service/internal/service"
	"github.com/spec-kit/workspace-service/internal/worker"
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
	permissionRepo := repository.NewPermissionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	ideaRepo := repository.NewIdeaRepository(pool)

	keyRing, err := buildKeyRing(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to build key ring", zap.Error(err))
	}
	clock := auth.SystemClock()
	tokenManager := auth.NewTokenManager(keyRing, clock, cfg.Auth.Leeway())
	hasher := auth.NewHasher(auth.Argon2Params{
		MemoryKB:    uint32(cfg.Auth.Argon2MemoryKB),
		Time:        uint32(cfg.Auth.Argon2Time),
		Parallelism: uint8(cfg.Auth.Argon2Parallelism),
	})

	dispatcher := events.NewInMemoryDispatcher()

	tokenService := service.NewTokenService(cfg.Auth, service.TokenDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Tokens:      tokenManager,
		Hasher:      hasher,
		Clock:       clock,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	accountService := service.NewAccountService(cfg.Auth, service.AccountDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		TokenService:      tokenService,
		Hasher:            hasher,
		Clock:             clock,
		Dispatcher:        dispatcher,
	})
	projectService := service.NewProjectService(projectRepo, dispatcher)
	taskService := service.NewTaskService(taskRepo, projectRepo, dispatcher)
	ideaService := service.NewIdeaService(ideaRepo, projectRepo, nil, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, nil, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	cleanup := worker.NewCleanupWorker(sessionRepo, resetRepo, cfg.Auth.CleanupInterval(), logger)
	go cleanup.Run(ctx)

	directory := repository.NewUserDirectory(userRepo, roleRepo)
	gate := auth.NewGate(tokenManager, directory, logger)

	loginLimiter, refreshLimiter := buildLimiters(cfg.RateLimit, redis)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:     handlers.NewAuthHandler(tokenService, accountService, loginLimiter, refreshLimiter, metrics),
		Users:    handlers.NewUsersHandler(userRepo, roleRepo, hasher),
		Roles:    handlers.NewRolesHandler(roleRepo, permissionRepo),
		Projects: handlers.NewProjectsHandler(projectService),
		Tasks:    handlers.NewTasksHandler(taskService),
		Ideas:    handlers.NewIdeasHandler(ideaService),
		Gate:     gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func buildKeyRing(cfg config.AuthConfig) (*auth.KeyRing, error) {
	pairs := cfg.SigningKeyPairs()
	keys := make([]auth.SigningKey, 0, len(pairs))
	for _, pair := range pairs {
		keys = append(keys, auth.SigningKey{ID: pair[0], Secret: []byte(pair[1])})
	}
	return auth.NewKeyRing(keys...)
}

func buildLimiters(cfg config.RateLimitConfig, redis *persistence.Redis) (ratelimit.Limiter, ratelimit.Limiter) {
	if !cfg.Enabled || redis == nil || redis.Client == nil {
		return ratelimit.Unlimited{}, ratelimit.Unlimited{}
	}
	login := ratelimit.NewFixedWindow(redis.Client, "rl:login", cfg.LoginPerMinute, time.Minute)
	refresh := ratelimit.NewFixedWindow(redis.Client, "rl:refresh", cfg.RefreshPerMinute, time.Minute)
	return login, refresh
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
