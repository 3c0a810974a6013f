package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/timebank-backend/internal/config"
	"github.com/ignatzorin/timebank-backend/internal/http/handlers"
	"github.com/ignatzorin/timebank-backend/internal/http/middleware"
	"github.com/ignatzorin/timebank-backend/internal/service"
)

// SetupRouter собирает HTTP маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	catalogHandler *handlers.CatalogHandler,
	bookingHandler *handlers.BookingHandler,
	reviewHandler *handlers.ReviewHandler,
	notificationHandler *handlers.NotificationHandler,
	creditHandler *handlers.CreditHandler,
	mediaHandler *handlers.MediaHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/services", catalogHandler.ListServices)
	api.GET("/users/:id", middleware.UUIDValidator("id"), profileHandler.GetUser)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListUserReviews)
	api.GET("/users/:id/rating", middleware.UUIDValidator("id"), reviewHandler.GetUserRating)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateMe)

		// Каталог услуг и слоты. "my" регистрируется до ":id", чтобы gin
		// не принял его за идентификатор.
		protected.POST("/services", catalogHandler.CreateService)
		protected.GET("/services/my", catalogHandler.ListMyServices)
		protected.GET("/services/:id", middleware.UUIDValidator("id"), catalogHandler.GetService)
		protected.DELETE("/services/:id", middleware.UUIDValidator("id"), catalogHandler.DeactivateService)
		protected.POST("/slots", catalogHandler.CreateSlot)
		protected.GET("/slots/my", catalogHandler.ListMySlots)
		protected.DELETE("/slots/:id", middleware.UUIDValidator("id"), catalogHandler.DeleteSlot)

		// Жизненный цикл бронирований. Создание дополнительно ограничено
		// по частоте: перебор чужих слотов не должен быть бесплатным.
		protected.POST("/bookings", middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), bookingHandler.Create)
		protected.GET("/bookings", bookingHandler.List)
		protected.GET("/bookings/upcoming", bookingHandler.Upcoming)
		protected.GET("/bookings/:id", middleware.UUIDValidator("id"), bookingHandler.Get)
		protected.POST("/bookings/:id/confirm", middleware.UUIDValidator("id"), bookingHandler.Confirm)
		protected.POST("/bookings/:id/decline", middleware.UUIDValidator("id"), bookingHandler.Decline)
		protected.POST("/bookings/:id/cancel", middleware.UUIDValidator("id"), bookingHandler.Cancel)
		protected.POST("/bookings/:id/confirm-session", middleware.UUIDValidator("id"), bookingHandler.ConfirmSession)
		protected.POST("/bookings/:id/dispute", middleware.UUIDValidator("id"), bookingHandler.OpenDispute)
		protected.GET("/bookings/:id/can-review", middleware.UUIDValidator("id"), reviewHandler.CanLeaveReview)

		// Отзывы
		protected.POST("/reviews", reviewHandler.Create)

		// Тайм-кредиты
		protected.GET("/credits/balance", creditHandler.GetBalance)
		protected.GET("/credits/transactions", creditHandler.ListTransactions)

		// Уведомления
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.Delete)

		// Медиа
		protected.POST("/media/photos", mediaHandler.UploadPhoto)
		protected.GET("/media/photos/:id", middleware.UUIDValidator("id"), mediaHandler.GetPhoto)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.DeleteMedia)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminOnly())
	{
		admin.POST("/bookings/:id/resolve-dispute", middleware.UUIDValidator("id"), bookingHandler.ResolveDispute)
		admin.DELETE("/reviews/:id", middleware.UUIDValidator("id"), reviewHandler.Delete)
	}

	return r
}
