package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orchardfleet/pkg/logger"
	"orchardfleet/pkg/metrics"
)

// SetupRoutes настраивает все маршруты сервиса.
// Порядок на подписанных маршрутах: проверка подписи -> токен -> бизнес-логика
// выражен цепочкой middleware: Authenticate ставит user_id, по которому
// VerifySignature выводит ключ пользователя.
func SetupRoutes(
	authHandler *AuthHandler,
	roleHandler *RoleHandler,
	permHandler *PermissionHandler,
	authMiddleware *AuthMiddleware,
) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("admin-service"))

	// CORS настройки
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "admin-service",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Публичные эндпоинты (без токена; оба входа подписаны на уровне сервиса)
	auth := router.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/miniapp/login", authHandler.MiniAppLogin)

		// Защищенные эндпоинты (требуют аутентификации)
		protected := auth.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/me", authHandler.GetEffectivePermissions)
		}
	}

	// Админская конфигурация доступа: каждый маршрут заново проверяет
	// авторизацию на сервере, кнопочные проверки клиента - только подсказка
	admin := router.Group("/admin")
	admin.Use(authMiddleware.Authenticate())
	{
		roles := admin.Group("/roles")
		{
			roles.GET("", authMiddleware.RequirePermission("btn.roles.view"), roleHandler.List)
			roles.POST("", authMiddleware.RequirePermission("btn.roles.create"), roleHandler.Create)
			roles.PUT("/:id", authMiddleware.RequirePermission("btn.roles.edit"), roleHandler.Update)
			roles.DELETE("/:id", authMiddleware.RequirePermission("btn.roles.delete"), roleHandler.Delete)
			roles.GET("/:id/permissions", authMiddleware.RequirePermission("btn.roles.view"), roleHandler.GetPermissions)
			roles.POST("/:id/permissions", authMiddleware.RequirePermission("btn.roles.assign"), roleHandler.AssignPermissions)
		}

		permissions := admin.Group("/permissions")
		{
			permissions.GET("/tree", authMiddleware.RequirePermission("btn.permissions.view"), permHandler.GetTree)
			permissions.GET("/:id", authMiddleware.RequirePermission("btn.permissions.view"), permHandler.GetByID)
			permissions.POST("", authMiddleware.RequirePermission("btn.permissions.create"), permHandler.Create)
			permissions.PUT("/:id", authMiddleware.RequirePermission("btn.permissions.edit"), permHandler.Update)
			permissions.DELETE("/:id", authMiddleware.RequirePermission("btn.permissions.delete"), permHandler.Delete)
		}

		admin.POST("/users/:id/reset-device", authMiddleware.RequirePermission("btn.users.reset-device"), authHandler.ResetDevice)
	}

	// Подписанные эндпоинты мини-приложения: проверка подписи предшествует
	// бизнес-логике; обязательные параметры объявляет каждый маршрут
	miniapp := router.Group("/miniapp")
	miniapp.Use(authMiddleware.Authenticate())
	{
		miniapp.GET("/profile", authMiddleware.VerifySignature(), authHandler.MiniAppProfile)
	}

	return router
}
