package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voicegate/backend/internal/api/rest"
	ws "github.com/voicegate/backend/internal/api/websocket"
	"github.com/voicegate/backend/internal/detectors"
	"github.com/voicegate/backend/internal/domain/auth"
	"github.com/voicegate/backend/internal/infrastructure/cache"
	"github.com/voicegate/backend/internal/infrastructure/config"
	"github.com/voicegate/backend/internal/infrastructure/database"
	"github.com/voicegate/backend/internal/infrastructure/repository"
	"github.com/voicegate/backend/internal/infrastructure/telemetry"
	"github.com/voicegate/backend/internal/metrics"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create infrastructure logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "voicegate-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SampleRate,
		ExportTimeout:  30 * time.Second,
		BatchTimeout:   5 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	registry, err := metrics.NewRegistry()
	if err != nil {
		log.Fatalf("failed to create metrics registry: %v", err)
	}

	level, err := auth.ParseSecurityLevel(cfg.Auth.SecurityLevel)
	if err != nil {
		log.Fatalf("invalid security level: %v", err)
	}

	engineOpts := []voiceauth.Option{
		voiceauth.WithSecurityLevel(level),
		voiceauth.WithNeutralConfidence(cfg.Auth.NeutralConfidence),
		voiceauth.WithDetectorTimeout(cfg.Auth.DetectorTimeout),
		voiceauth.WithLogger(logger),
		voiceauth.WithMetrics(registry),
		voiceauth.WithAccessController(rest.NewClaimsAccessController()),
	}

	// Failure counters and session stamps live in redis when configured,
	// falling back to process memory for single-instance deployments.
	var (
		failures voiceauth.FailureStore
		sessions voiceauth.SessionStore
	)
	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis, zapLogger)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		failures = cache.NewRedisFailureStore(redisClient, zapLogger)
		sessions = cache.NewRedisSessionStore(redisClient, zapLogger, 24*time.Hour)
	} else {
		logger.Warn("redis not configured, using in-memory stores")
		failures = voiceauth.NewMemoryFailureStore()
		sessions = voiceauth.NewMemorySessionStore()
	}

	var attempts voiceauth.AttemptRepository
	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, &cfg.Database, zapLogger)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()
		attempts = repository.NewAttemptRepository(pool.DB())
		engineOpts = append(engineOpts, voiceauth.WithAttemptRepository(attempts))
	} else {
		logger.Warn("database not configured, attempt audit log disabled")
	}

	biometric, synthetic, behavioral := detectors.NewDefaultSet(logger)
	engine := voiceauth.NewEngine(biometric, synthetic, behavioral, failures, sessions, engineOpts...)

	hub := ws.NewEventHub(engine.Events(), zapLogger)
	go hub.Run(ctx)
	defer hub.Stop()

	handler := rest.NewHandler(engine, attempts, cfg.Auth.SessionWindow, logger)
	router := rest.NewRouter(rest.RouterConfig{
		Handler: handler,
		Auth: rest.NewAuthMiddleware(&rest.AuthConfig{
			JWTSecret:   []byte(cfg.Security.JWTSecret),
			TokenExpiry: cfg.Security.TokenExpiry,
			Issuer:      "voicegate",
		}),
		Events:          ws.NewHandler(hub, zapLogger),
		RateRPS:         cfg.Security.RateLimit.RequestsPerSecond,
		RateBurst:       cfg.Security.RateLimit.BurstSize,
		ExtraMiddleware: []rest.Middleware{prometheusMiddleware},
	})

	server := rest.NewServer(&cfg.Server, router, logger)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("server stopped")
}
