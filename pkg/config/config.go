package config

import (
	"errors"
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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Search    SearchConfig
	Bulk      BulkConfig
	Retention RetentionConfig
	Export    ExportConfig
	Consent   ConsentConfig
	Tags      TagConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SearchConfig bounds search pagination and vocabulary caching.
type SearchConfig struct {
	MaxPageSize     int
	DefaultPageSize int
}

// BulkConfig tunes the bulk mutation executor.
type BulkConfig struct {
	WorkerConcurrency int
	MaxTargets        int
	QueueBuffer       int
	ReportCacheTTL    time.Duration
}

// RetentionConfig controls the periodic retention pass.
type RetentionConfig struct {
	Enabled  bool
	Interval time.Duration
}

// ExportConfig bounds note exports and signed download URLs.
type ExportConfig struct {
	MaxNotes        int
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	BundleTTL       time.Duration
	CleanupInterval time.Duration
}

// ConsentConfig stamps the consent schema version onto new records.
type ConsentConfig struct {
	PolicyVersion string
}

// TagConfig tunes tag vocabulary caching.
type TagConfig struct {
	VocabularyCacheTTL time.Duration
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
		if !errors.As(err, &notFound) {
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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Search = SearchConfig{
		MaxPageSize:     v.GetInt("SEARCH_MAX_PAGE_SIZE"),
		DefaultPageSize: v.GetInt("SEARCH_DEFAULT_PAGE_SIZE"),
	}

	cfg.Bulk = BulkConfig{
		WorkerConcurrency: v.GetInt("BULK_WORKER_CONCURRENCY"),
		MaxTargets:        v.GetInt("BULK_MAX_TARGETS"),
		QueueBuffer:       v.GetInt("BULK_QUEUE_BUFFER"),
		ReportCacheTTL:    parseDuration(v.GetString("BULK_REPORT_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Retention = RetentionConfig{
		Enabled:  v.GetBool("ENABLE_RETENTION"),
		Interval: parseDuration(v.GetString("RETENTION_INTERVAL"), time.Hour),
	}

	cfg.Export = ExportConfig{
		MaxNotes:        v.GetInt("EXPORT_MAX_NOTES"),
		StorageDir:      v.GetString("EXPORT_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORT_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORT_SIGNED_URL_TTL"), 30*time.Minute),
		BundleTTL:       parseDuration(v.GetString("EXPORT_BUNDLE_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Consent = ConsentConfig{
		PolicyVersion: v.GetString("CONSENT_POLICY_VERSION"),
	}

	cfg.Tags = TagConfig{
		VocabularyCacheTTL: parseDuration(v.GetString("TAG_VOCABULARY_CACHE_TTL"), 10*time.Minute),
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
	v.SetDefault("DB_NAME", "coaching_notes")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEARCH_MAX_PAGE_SIZE", 100)
	v.SetDefault("SEARCH_DEFAULT_PAGE_SIZE", 20)

	v.SetDefault("BULK_WORKER_CONCURRENCY", 4)
	v.SetDefault("BULK_MAX_TARGETS", 500)
	v.SetDefault("BULK_QUEUE_BUFFER", 16)
	v.SetDefault("BULK_REPORT_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_RETENTION", false)
	v.SetDefault("RETENTION_INTERVAL", "1h")

	v.SetDefault("EXPORT_MAX_NOTES", 200)
	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORT_SIGNED_URL_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_SIGNED_URL_TTL", "30m")
	v.SetDefault("EXPORT_BUNDLE_TTL", "24h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "1h")

	v.SetDefault("CONSENT_POLICY_VERSION", "2024-01")

	v.SetDefault("TAG_VOCABULARY_CACHE_TTL", "10m")
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
