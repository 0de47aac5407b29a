// Package app assembles repositories and services from configuration. The
// HTTP gateway and the operator CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/internal/repository"
	"github.com/noah-isme/topfive-api/internal/service"
	"github.com/noah-isme/topfive-api/migrations"
	"github.com/noah-isme/topfive-api/pkg/cache"
	"github.com/noah-isme/topfive-api/pkg/config"
	"github.com/noah-isme/topfive-api/pkg/database"
	"github.com/noah-isme/topfive-api/pkg/push"
	"github.com/noah-isme/topfive-api/pkg/youtube"
)

// App holds the wired services and the connections they depend on.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics       *service.MetricsService
	Auth          *service.AuthService
	Users         *service.UserService
	Audit         *service.AuditService
	Notifications *service.NotificationService
	Suggestions   *service.SuggestionService
	// CatalogSync is nil when no YouTube API key is configured.
	CatalogSync *service.CatalogSyncService
}

// New connects to Postgres (and Redis when enabled) and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db.DB, migrations.FS, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if _, err := migrator.Up(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	forwarder, err := push.NewForwarder(cfg.Push)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Redis: redisClient}
	if err := a.wire(ctx, forwarder); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, forwarder *push.Forwarder) error {
	cfg := a.Config
	validate := validator.New()

	userRepo := repository.NewUserRepository(a.DB)
	auditRepo := repository.NewAuditRepository(a.DB)
	notificationRepo := repository.NewNotificationRepository(a.DB)
	suggestionRepo := repository.NewSuggestionRepository(a.DB)

	a.Metrics = service.NewMetricsService()

	a.Auth = service.NewAuthService(userRepo, auditRepo, validate, a.Logger, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	a.Users = service.NewUserService(userRepo, auditRepo, validate, a.Logger)
	a.Audit = service.NewAuditService(auditRepo, a.Logger)
	a.Notifications = service.NewNotificationService(notificationRepo, forwarder, a.Logger)

	opts := []service.SuggestionServiceOption{
		service.WithSuggestionMetrics(a.Metrics),
		service.WithSuggestionValidator(validate),
	}
	if a.Redis != nil {
		cacheRepo := repository.NewCacheRepository(a.Redis, "topfive:", a.Logger)
		opts = append(opts, service.WithSuggestionCache(
			service.NewCacheService(cacheRepo, a.Metrics, cfg.Suggestions.CacheTTL, a.Logger, cfg.Suggestions.CacheEnabled),
		))
	}

	var catalog videoCatalog
	var client *youtube.Client
	if cfg.Catalog.APIKey != "" {
		var err error
		client, err = youtube.NewClient(ctx, cfg.Catalog, youtube.WithLogger(a.Logger))
		if err != nil {
			return err
		}
		catalog = client
	} else {
		a.Logger.Warn("YOUTUBE_API_KEY is empty; submissions and catalog sync are disabled")
	}

	a.Suggestions = service.NewSuggestionService(suggestionRepo, catalog, auditRepo, a.Notifications, cfg.Suggestions, a.Logger, opts...)
	if client != nil {
		a.CatalogSync = service.NewCatalogSyncService(client, a.Suggestions, cfg.Catalog, cfg.Sync, a.Logger)
	}
	return nil
}

type videoCatalog interface {
	Video(ctx context.Context, id string) (*youtube.Video, error)
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
