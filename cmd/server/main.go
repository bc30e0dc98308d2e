package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/config"
	"github.com/ignatzorin/freelance-escrow/internal/db"
	httpHandlers "github.com/ignatzorin/freelance-escrow/internal/http/handlers"
	httpRouter "github.com/ignatzorin/freelance-escrow/internal/http/router"
	"github.com/ignatzorin/freelance-escrow/internal/ledger"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
	"github.com/ignatzorin/freelance-escrow/internal/service"
	"github.com/ignatzorin/freelance-escrow/internal/storage"
	"github.com/ignatzorin/freelance-escrow/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	proofStorage, err := storage.NewProofStorage(cfg.ProofStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	contractRepo := repository.NewContractRepository(dbConn)
	milestoneRepo := repository.NewMilestoneRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	arbitratorRepo := repository.NewArbitratorRepository(dbConn)
	eventLogRepo := repository.NewEventLogRepository(dbConn)

	// Леджер поверх той же базы.
	escrowLedger := ledger.NewPostgresLedger(dbConn)

	// Вебсокеты: лента событий с журналом.
	hub := ws.NewHub(ctx)
	hub.SetEventSaver(eventLogRepo)
	go hub.Run()
	events := ws.NewEventAdapter(hub)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	projectService := service.NewProjectService(projectRepo)
	contractService := service.NewContractService(contractRepo, escrowLedger, events)
	milestoneService := service.NewMilestoneService(milestoneRepo, contractRepo, escrowLedger, events)
	disputeService := service.NewDisputeService(disputeRepo, contractRepo, arbitratorRepo, projectRepo, escrowLedger, events, service.DisputeConfig{
		DefaultArbitratorID: cfg.DefaultArbitratorID,
		StrictMatching:      cfg.StrictMatching,
		PresenceTTL:         cfg.PresenceTTL,
		ArbitrationReward:   cfg.ArbitrationReward,
	})
	arbitratorService := service.NewArbitratorService(arbitratorRepo, userRepo, escrowLedger, events, service.ArbitratorConfig{
		MinStake:         cfg.ArbitratorMinStake,
		GigCancelPenalty: cfg.GigCancelPenalty,
	})

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	projectHandler := httpHandlers.NewProjectHandler(projectService)
	contractHandler := httpHandlers.NewContractHandler(contractService)
	milestoneHandler := httpHandlers.NewMilestoneHandler(milestoneService, proofStorage)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	arbitratorHandler := httpHandlers.NewArbitratorHandler(arbitratorService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager, eventLogRepo)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, projectHandler, contractHandler, milestoneHandler, disputeHandler, arbitratorHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
