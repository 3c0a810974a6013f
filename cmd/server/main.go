package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/timebank-backend/internal/config"
	"github.com/ignatzorin/timebank-backend/internal/db"
	httpHandlers "github.com/ignatzorin/timebank-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/timebank-backend/internal/http/router"
	"github.com/ignatzorin/timebank-backend/internal/logger"
	"github.com/ignatzorin/timebank-backend/internal/meeting"
	"github.com/ignatzorin/timebank-backend/internal/repository"
	"github.com/ignatzorin/timebank-backend/internal/service"
	"github.com/ignatzorin/timebank-backend/internal/storage"
	"github.com/ignatzorin/timebank-backend/internal/ws"
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

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	bookingRepo := repository.NewBookingRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	creditRepo := repository.NewCreditRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager, cfg.SignupBonusCredits)
	catalogService := service.NewCatalogService(catalogRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	reviewService := service.NewReviewService(reviewRepo, bookingRepo)
	reviewService.SetNotifier(notificationService)

	var meetingClient *meeting.Client
	if cfg.MeetingBaseURL != "" {
		meetingClient = meeting.NewClient(cfg.MeetingBaseURL)
	}

	bookingService := service.NewBookingService(bookingRepo, catalogRepo, creditRepo, meetingClientOrNil(meetingClient), cfg.ReminderLead, cfg.SessionWindow)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()
	bookingService.SetHub(hub)
	notificationService.SetHub(hub)

	// Поллер напоминаний: доставляет запланированные уведомления,
	// чей срок наступил.
	go runReminderPoller(ctx, notificationService)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(userRepo)
	catalogHandler := httpHandlers.NewCatalogHandler(catalogService)
	bookingHandler := httpHandlers.NewBookingHandler(bookingService, catalogService)
	reviewHandler := httpHandlers.NewReviewHandler(reviewService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	creditHandler := httpHandlers.NewCreditHandler(creditRepo)
	mediaHandler := httpHandlers.NewMediaHandler(mediaRepo, photoStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, profileHandler, catalogHandler, bookingHandler, reviewHandler, notificationHandler, creditHandler, mediaHandler, wsHandler, healthHandler, tokenManager)

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

// runReminderPoller раз в минуту доставляет запланированные напоминания.
func runReminderPoller(ctx context.Context, notifications *service.NotificationService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := notifications.DeliverDue(ctx); err != nil && logger.Log != nil {
				logger.Log.WithError(err).Warn("main: ошибка доставки напоминаний")
			}
		}
	}
}

// meetingClientOrNil возвращает nil-интерфейс, если клиент не настроен.
func meetingClientOrNil(c *meeting.Client) service.MeetingLinkProvider {
	if c == nil {
		return nil
	}
	return c
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
