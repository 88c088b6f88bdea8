package storage

import "time"

// Config holds persistence configuration shared by the postgres and s3
// subpackages.
type Config struct {
	// PostgreSQL
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration

	// S3-compatible object storage (posters, avatars)
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Redis (rate limiting, health checks)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Poster read cache
	CacheEnabled    bool
	PosterCacheSize int
	PosterCacheTTL  time.Duration
}

// DefaultConfig returns sensible local-development defaults.
func DefaultConfig() Config {
	return Config{
		PostgresURL:      "postgres://localhost/cinelog?sslmode=disable",
		PostgresMaxConns: 25,
		PostgresMinConns: 5,
		PostgresTimeout:  10 * time.Second,
		MaxConnLifetime:  30 * time.Minute,
		MaxConnIdleTime:  5 * time.Minute,
		S3Region:         "us-east-1",
		S3Bucket:         "cinelog-media",
		RedisURL:         "localhost:6379",
		CacheEnabled:     true,
		PosterCacheSize:  256,
		PosterCacheTTL:   time.Hour,
	}
}
