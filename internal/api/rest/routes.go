package rest

import (
	"github.com/Dhoini/attendance-service/internal/api/rest/handlers"
	"github.com/Dhoini/attendance-service/internal/api/rest/middleware"
	"github.com/Dhoini/attendance-service/internal/auth"
	"github.com/Dhoini/attendance-service/internal/service"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies сервисы, которые обслуживает роутер
type Dependencies struct {
	Subscriptions service.SubscriptionService
	Auth          service.AuthService
	Tokens        auth.TokenValidator
	HealthChecks  map[string]handlers.Checker
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.NewHealthHandler(deps.HealthChecks).HealthCheck)

	// Prometheus метрики
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	subscriptionHandler := handlers.NewSubscriptionHandler(deps.Subscriptions, log)
	authHandler := handlers.NewAuthHandler(deps.Auth, log)
	jwtMiddleware := middleware.NewJWTMiddleware(deps.Tokens, log)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		subscription := v1.Group("/subscription", jwtMiddleware.RequireAuth())
		{
			subscription.GET("", subscriptionHandler.GetSubscription)
			subscription.POST("", subscriptionHandler.CreateSubscription)
			subscription.PUT("", subscriptionHandler.CancelSubscription)
			subscription.PATCH("", subscriptionHandler.ExpireSubscription)
		}
	}
	return r
}
