package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cinelog/cinelog/pkg/api"
	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/config"
	"github.com/cinelog/cinelog/pkg/mail"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/sso"
	"github.com/cinelog/cinelog/pkg/storage"
	"github.com/cinelog/cinelog/pkg/storage/postgres"
	"github.com/cinelog/cinelog/pkg/storage/s3"
	"github.com/cinelog/cinelog/pkg/swagger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cinelog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting cinelog")

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := postgres.Connect(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	store := postgres.New(db, cfg.Storage)
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s3Client, err := s3.NewClient(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	var blobs storage.BlobStore = s3Client
	if cfg.Storage.CacheEnabled {
		blobs = s3.NewCachingBlobStore(s3Client, cfg.Storage)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.RedisURL,
		Password: cfg.Storage.RedisPassword,
		DB:       cfg.Storage.RedisDB,
	})
	defer redisClient.Close()

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	mailer := mail.NewClient(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
	if !mailer.IsConfigured() {
		logger.Warn("mail client not configured, transactional email disabled")
	}

	var bridge *sso.Bridge
	var oauthFlow api.OAuthFlow
	if cfg.Auth.GoogleClientID != "" {
		verifier, err := sso.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
		if err != nil {
			return fmt.Errorf("failed to initialize google sign-in: %w", err)
		}
		bridge = sso.NewBridge(verifier, store, blobs, hasher, issuer, logger)

		if cfg.Auth.GoogleClientSecret != "" && cfg.Auth.GoogleRedirectURL != "" {
			oauthFlow = sso.NewGoogleOAuth(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.GoogleRedirectURL)
		} else {
			logger.Warn("google client secret or redirect url not set, browser redirect flow disabled")
		}
	} else {
		logger.Warn("google client id not set, federated sign-in disabled")
	}

	var apiLimiter *middleware.RateLimitMiddleware
	if cfg.Server.RateLimitEnabled {
		apiLimiter = middleware.NewRateLimitMiddleware()
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	server := api.NewServer(api.Deps{
		Store:          store,
		Blobs:          blobs,
		Issuer:         issuer,
		Hasher:         hasher,
		Bridge:         bridge,
		OAuth:          oauthFlow,
		Mailer:         mailer,
		Logger:         logger,
		Metrics:        metrics,
		RateLimit:      apiLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	if cfg.Docs.Enabled {
		limiter := middleware.NewDistributedRateLimiter(redisClient, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Docs.RateLimit,
			WindowDuration:    cfg.Docs.RateLimitWindow,
		}, "docs", logger)
		swagger.NewHandlers(cfg.Docs.Username, cfg.Docs.Password, limiter).RegisterRoutes(server.Router())
	}

	// Health and metrics ride on their own port so probes bypass auth and
	// rate limiting entirely.
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient, s3Client)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(server, "cinelog-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sm := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	if providers != nil {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	if metrics != nil {
		go reportPoolStats(ctx, db, metrics)
	}

	var g errgroup.Group
	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(sm.WaitForShutdown)

	return g.Wait()
}

// reportPoolStats exports database pool gauges every 15 seconds.
func reportPoolStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		case <-ctx.Done():
			return
		}
	}
}
