package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Suggestions SuggestionsConfig
	Catalog     CatalogConfig
	Sync        SyncConfig
	Push        PushConfig
	Metrics     MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SuggestionsConfig tunes the approval workflow and the public ranking.
type SuggestionsConfig struct {
	StoreTimeout   time.Duration
	OthersPageSize int
	NotifyOnReject bool
	CacheEnabled   bool
	CacheTTL       time.Duration
}

// CatalogConfig configures the YouTube Data API client.
type CatalogConfig struct {
	APIKey         string
	Endpoint       string
	SearchQuery    string
	MaxResults     int
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// SyncConfig controls the periodic catalog import.
type SyncConfig struct {
	Enabled    bool
	Interval   time.Duration
	ActorID    string
	MaxRetries int
	RetryDelay time.Duration
}

// PushConfig lists shoutrrr service URLs notifications are forwarded to.
type PushConfig struct {
	URLs    []string
	Timeout time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	othersPageSize := v.GetInt("SUGGESTIONS_OTHERS_PAGE_SIZE")
	if othersPageSize <= 0 {
		othersPageSize = 10
	}
	cfg.Suggestions = SuggestionsConfig{
		StoreTimeout:   parseDuration(v.GetString("SUGGESTIONS_STORE_TIMEOUT"), 5*time.Second),
		OthersPageSize: othersPageSize,
		NotifyOnReject: v.GetBool("SUGGESTIONS_NOTIFY_ON_REJECT"),
		CacheEnabled:   v.GetBool("SUGGESTIONS_CACHE_ENABLED"),
		CacheTTL:       parseDuration(v.GetString("SUGGESTIONS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Catalog = CatalogConfig{
		APIKey:         v.GetString("YOUTUBE_API_KEY"),
		Endpoint:       v.GetString("YOUTUBE_ENDPOINT"),
		SearchQuery:    v.GetString("YOUTUBE_SEARCH_QUERY"),
		MaxResults:     v.GetInt("YOUTUBE_MAX_RESULTS"),
		RequestTimeout: parseDuration(v.GetString("YOUTUBE_REQUEST_TIMEOUT"), 10*time.Second),
		CacheTTL:       parseDuration(v.GetString("YOUTUBE_CACHE_TTL"), time.Hour),
	}

	cfg.Sync = SyncConfig{
		Enabled:    v.GetBool("ENABLE_CATALOG_SYNC"),
		Interval:   parseDuration(v.GetString("CATALOG_SYNC_INTERVAL"), 24*time.Hour),
		ActorID:    v.GetString("CATALOG_SYNC_ACTOR_ID"),
		MaxRetries: v.GetInt("CATALOG_SYNC_RETRIES"),
		RetryDelay: parseDuration(v.GetString("CATALOG_SYNC_RETRY_DELAY"), time.Minute),
	}

	cfg.Push = PushConfig{
		URLs:    splitAndTrim(v.GetString("PUSH_URLS")),
		Timeout: parseDuration(v.GetString("PUSH_TIMEOUT"), 10*time.Second),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "topfive")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "topfive-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SUGGESTIONS_STORE_TIMEOUT", "5s")
	v.SetDefault("SUGGESTIONS_OTHERS_PAGE_SIZE", 10)
	v.SetDefault("SUGGESTIONS_NOTIFY_ON_REJECT", false)
	v.SetDefault("SUGGESTIONS_CACHE_ENABLED", false)
	v.SetDefault("SUGGESTIONS_CACHE_TTL", "5m")

	v.SetDefault("YOUTUBE_API_KEY", "")
	v.SetDefault("YOUTUBE_ENDPOINT", "")
	v.SetDefault("YOUTUBE_SEARCH_QUERY", "Tião Carreiro e Pardinho")
	v.SetDefault("YOUTUBE_MAX_RESULTS", 20)
	v.SetDefault("YOUTUBE_REQUEST_TIMEOUT", "10s")
	v.SetDefault("YOUTUBE_CACHE_TTL", "1h")

	v.SetDefault("ENABLE_CATALOG_SYNC", false)
	v.SetDefault("CATALOG_SYNC_INTERVAL", "24h")
	v.SetDefault("CATALOG_SYNC_ACTOR_ID", "")
	v.SetDefault("CATALOG_SYNC_RETRIES", 3)
	v.SetDefault("CATALOG_SYNC_RETRY_DELAY", "1m")

	v.SetDefault("PUSH_URLS", "")
	v.SetDefault("PUSH_TIMEOUT", "10s")

	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
