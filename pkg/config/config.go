// Package config loads application configuration from CINELOG_* environment
// variables with sensible local-development defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       storage.Config
	Auth          AuthConfig
	Mail          MailConfig
	Docs          DocsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// RateLimitEnabled mounts the in-process per-user limiter on the
	// authenticated routes.
	RateLimitEnabled bool

	AllowedOrigins []string
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	// JWTSecret signs session tokens. Required in production.
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// Google federated sign-in
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// MailConfig holds transactional email settings. Email sending is optional;
// an empty APIKey disables it.
type MailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// DocsConfig gates the API documentation endpoints.
type DocsConfig struct {
	Enabled  bool
	Username string
	Password string

	// Fixed-window rate limit applied to the docs endpoints.
	RateLimit       int
	RateLimitWindow time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Mail:          loadMailConfig(),
		Docs:          loadDocsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:             getEnv("CINELOG_HOST", "0.0.0.0"),
		Port:             getEnv("CINELOG_PORT", "8080"),
		ReadTimeout:      getEnvDuration("CINELOG_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:     getEnvDuration("CINELOG_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:      getEnvDuration("CINELOG_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:  getEnvDuration("CINELOG_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:       getEnv("CINELOG_HEALTH_PORT", "9090"),
		RateLimitEnabled: getEnvBool("CINELOG_RATE_LIMIT_ENABLED", false),
		AllowedOrigins:   strings.Split(getEnv("CINELOG_ALLOWED_ORIGINS", "*"), ","),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if pgURL := getEnv("CINELOG_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("CINELOG_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("CINELOG_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("CINELOG_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	if s3Endpoint := getEnv("CINELOG_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("CINELOG_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("CINELOG_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("CINELOG_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("CINELOG_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("CINELOG_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	if redisURL := getEnv("CINELOG_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("CINELOG_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("CINELOG_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}

	if cacheEnabled := getEnv("CINELOG_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if cacheSize := getEnvInt("CINELOG_POSTER_CACHE_SIZE", 0); cacheSize > 0 {
		cfg.PosterCacheSize = cacheSize
	}
	if cacheTTL := getEnvDuration("CINELOG_POSTER_CACHE_TTL", 0); cacheTTL > 0 {
		cfg.PosterCacheTTL = cacheTTL
	}

	return cfg
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:          getEnv("CINELOG_JWT_SECRET", ""),
		TokenTTL:           getEnvDuration("CINELOG_TOKEN_TTL", auth.DefaultTokenTTL),
		BcryptCost:         getEnvInt("CINELOG_BCRYPT_COST", auth.DefaultBcryptCost),
		GoogleClientID:     getEnv("CINELOG_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("CINELOG_GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("CINELOG_GOOGLE_REDIRECT_URL", ""),
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		APIKey:    getEnv("CINELOG_MAIL_API_KEY", ""),
		FromEmail: getEnv("CINELOG_MAIL_FROM_EMAIL", "no-reply@cinelog.app"),
		FromName:  getEnv("CINELOG_MAIL_FROM_NAME", "CineLog"),
	}
}

func loadDocsConfig() DocsConfig {
	return DocsConfig{
		Enabled:         getEnvBool("CINELOG_DOCS_ENABLED", true),
		Username:        getEnv("CINELOG_DOCS_USERNAME", "admin"),
		Password:        getEnv("CINELOG_DOCS_PASSWORD", ""),
		RateLimit:       getEnvInt("CINELOG_DOCS_RATE_LIMIT", 100),
		RateLimitWindow: getEnvDuration("CINELOG_DOCS_RATE_WINDOW", 5*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("CINELOG_LOG_LEVEL", "info"))),
		MetricsEnabled:     getEnvBool("CINELOG_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CINELOG_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CINELOG_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CINELOG_OTEL_SERVICE_NAME", "cinelog-api"),
		OTelServiceVersion: getEnv("CINELOG_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CINELOG_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set CINELOG_JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required")
	}

	if c.Docs.Enabled && c.Docs.Password == "" {
		return fmt.Errorf("docs password is required when docs are enabled (set CINELOG_DOCS_PASSWORD)")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
