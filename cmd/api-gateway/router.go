package main

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/topfive-api/api/swagger"
	"github.com/noah-isme/topfive-api/internal/app"
	"github.com/noah-isme/topfive-api/internal/handler"
	internalmiddleware "github.com/noah-isme/topfive-api/internal/middleware"
	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/pkg/config"
	"github.com/noah-isme/topfive-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/topfive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/topfive-api/pkg/middleware/requestid"
)

// catalogSyncer returns a nil interface when no catalog is configured.
func catalogSyncer(a *app.App) handler.CatalogSyncer {
	if a.CatalogSync == nil {
		return nil
	}
	return a.CatalogSync
}

func newRouter(a *app.App) *gin.Engine {
	cfg := a.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(a.Metrics))
	}

	checks := map[string]handler.Pinger{"postgres": a.DB}
	if a.Redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(a.Metrics, checks)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(a.Auth)
	userHandler := handler.NewUserHandler(a.Users)
	activityHandler := handler.NewActivityHandler(a.Audit)
	notificationHandler := handler.NewNotificationHandler(a.Notifications)
	suggestionHandler := handler.NewSuggestionHandler(a.Suggestions, catalogSyncer(a))

	requireAuth := internalmiddleware.JWT(a.Auth)
	optionalAuth := internalmiddleware.OptionalJWT(a.Auth)
	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)
	auth.POST("/change-password", requireAuth, authHandler.ChangePassword)

	users := api.Group("/users", requireAuth)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", adminOnly, userHandler.Create)
	users.PUT("/:id", adminOnly, userHandler.Update)
	users.DELETE("/:id", adminOnly, userHandler.Delete)

	suggestions := api.Group("/suggestions")
	suggestions.GET("", optionalAuth, suggestionHandler.Ranking)
	suggestions.GET("/top-five", optionalAuth, suggestionHandler.TopFive)
	suggestions.GET("/others", optionalAuth, suggestionHandler.Others)
	suggestions.GET("/pending", requireAuth, adminOnly, suggestionHandler.Pending)
	suggestions.POST("/sync", requireAuth, adminOnly, suggestionHandler.Sync)
	suggestions.GET("/:id", optionalAuth, suggestionHandler.Get)
	suggestions.POST("", requireAuth, suggestionHandler.Create)
	suggestions.POST("/:id/contribute", requireAuth, suggestionHandler.Contribute)
	suggestions.POST("/:id/review", requireAuth, adminOnly, suggestionHandler.Review)
	suggestions.PUT("/:id", requireAuth, adminOnly, suggestionHandler.Update)
	suggestions.DELETE("/:id", requireAuth, adminOnly, suggestionHandler.Delete)

	notifications := api.Group("/notifications", requireAuth)
	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
	notifications.PATCH("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/:id", notificationHandler.Delete)

	activity := api.Group("/activity-logs", requireAuth, adminOnly)
	activity.GET("", activityHandler.List)
	activity.GET("/export", activityHandler.Export)
	activity.GET("/target/:type/:id", activityHandler.ByTarget)
	activity.GET("/actor/:id", activityHandler.ByActor)
	activity.GET("/:id", activityHandler.Get)

	api.GET("/metrics/snapshot", requireAuth, adminOnly, metricsHandler.Snapshot)

	return r
}
