package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/refund-claim-service/internal/agents"
	httptransport "github.com/spec-kit/refund-claim-service/internal/api/http"
	"github.com/spec-kit/refund-claim-service/internal/api/http/handlers"
	"github.com/spec-kit/refund-claim-service/internal/auth"
	"github.com/spec-kit/refund-claim-service/internal/config"
	"github.com/spec-kit/refund-claim-service/internal/events"
	"github.com/spec-kit/refund-claim-service/internal/gemini"
	"github.com/spec-kit/refund-claim-service/internal/observability"
	"github.com/spec-kit/refund-claim-service/internal/persistence"
	"github.com/spec-kit/refund-claim-service/internal/repository"
	"github.com/spec-kit/refund-claim-service/internal/service"
	"github.com/spec-kit/refund-claim-service/internal/worker"
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

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		logger.Fatal("failed to init gemini client", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	caseRepo := repository.NewCaseRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	chatRepo := repository.NewChatRepository(redis.Client)
	lockRepo := repository.NewStageLockRepository(redis.Client)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	authService := service.NewAuthService(*cfg, userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:     caseRepo,
		LockRepo:     lockRepo,
		Extractor:    agents.NewExtractor(geminiClient, cfg.Gemini),
		Analyst:      agents.NewAnalyst(geminiClient, cfg.Gemini),
		Drafter:      agents.NewDrafter(geminiClient, cfg.Gemini),
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		MaxFileBytes: cfg.Upload.MaxFileSizeBytes(),
	})
	templateService := service.NewTemplateService(templateRepo, logger)
	chatService := service.NewChatService(chatRepo, agents.NewGuide(geminiClient, cfg.Gemini), logger)

	go caseService.RunAutosave(ctx, cfg.Autosave.Interval())

	app := fiber.New(fiber.Config{
		// Base64 payloads inflate uploads by a third; leave headroom above
		// the decoded per-file limit.
		BodyLimit: int(cfg.Upload.MaxFileSizeBytes()) * 2,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Cases:          handlers.NewCasesHandler(caseService, templateService),
		Templates:      handlers.NewTemplatesHandler(templateService, caseService),
		Chat:           handlers.NewChatHandler(chatService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
