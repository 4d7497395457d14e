package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bibbank/risk-orchestrator/internal/application/usecase"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/internal/domain/service"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/config"
	kafkainfra "github.com/bibbank/risk-orchestrator/internal/infrastructure/kafka"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/memory"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/metrics"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/postgres"
	redisinfra "github.com/bibbank/risk-orchestrator/internal/infrastructure/redis"
	"github.com/bibbank/risk-orchestrator/internal/infrastructure/scoring"
	grpcpresentation "github.com/bibbank/risk-orchestrator/internal/presentation/grpc"
	"github.com/bibbank/risk-orchestrator/internal/presentation/rest"
	"github.com/bibbank/risk-orchestrator/pkg/auth"
	"github.com/bibbank/risk-orchestrator/pkg/circuitbreaker"
	pkgkafka "github.com/bibbank/risk-orchestrator/pkg/kafka"
	"github.com/bibbank/risk-orchestrator/pkg/observability"
	pgpkg "github.com/bibbank/risk-orchestrator/pkg/postgres"
	"github.com/bibbank/risk-orchestrator/pkg/tlsutil"
)

const serviceName = "risk-orchestrator"

func main() {
	if err := run(); err != nil {
		slog.Error("risk-orchestrator exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: serviceName,
	})

	logger.Info("starting risk-orchestrator",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"scorer", cfg.ScorerTransport,
		"alert_store", cfg.AlertStore,
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: cfg.ServiceVersion,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: serviceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	recorder, err := metrics.NewRecorder()
	if err != nil {
		return fmt.Errorf("init metrics recorder: %w", err)
	}

	// Alert store and bus.
	store, checks, closeStore, err := buildAlertStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	// Scoring.
	model, err := buildScoringModel(cfg)
	if err != nil {
		return err
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	breaker := circuitbreaker.New(model.Name(), cfg.BreakerThreshold, cfg.BreakerCooldown)
	scorer := scoring.NewClient(model, scoring.ClientConfig{
		MaxConcurrent: cfg.ScorerMaxConns,
		RetryDelay:    cfg.ScorerRetryDelay,
	}, breaker, logger)

	// Use cases.
	rules, err := service.CompileReasonRules(cfg.ReasonRules)
	if err != nil {
		return fmt.Errorf("compile reason rules: %w", err)
	}

	pipelineCfg := usecase.DefaultAlertPipelineConfig()
	pipelineCfg.Topic = cfg.AlertTopic
	pipelineCfg.QueueSize = cfg.AlertQueueSize
	pipelineCfg.Workers = cfg.AlertWorkers
	pipelineCfg.JobTimeout = cfg.AlertJobTimeout
	pipelineCfg.PublishAttempts = cfg.AlertPublishTries
	pipelineCfg.RelayInterval = cfg.AlertRelayEvery
	pipelineCfg.RelayBatch = cfg.AlertRelayBatch
	pipelineCfg.RelayGrace = cfg.AlertJobTimeout
	pipeline := usecase.NewAlertPipeline(store, publisher, pipelineCfg, recorder, logger)
	pipeline.Start(ctx)

	evaluateRiskUC, err := usecase.NewEvaluateRisk(cfg.RiskPolicy(), rules, scorer, pipeline, usecase.EvaluateRiskConfig{
		Budget:          cfg.ScoringBudget,
		AlertOnDegraded: cfg.AlertOnDegraded,
	}, recorder, logger)
	if err != nil {
		return fmt.Errorf("build evaluate use case: %w", err)
	}
	getAlertUC := usecase.NewGetAlert(store)

	var jwtService *auth.JWTService
	if cfg.JWTSecret != "" {
		jwtService, err = auth.NewJWTService(auth.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		if err != nil {
			return fmt.Errorf("init jwt: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set, API authentication disabled")
	}

	// gRPC server.
	grpcHandler := grpcpresentation.NewRiskServiceHandler(evaluateRiskUC, getAlertUC, jwtService != nil, logger)
	grpcServer, err := grpcpresentation.NewServer(grpcHandler, grpcpresentation.ServerConfig{
		Address:     cfg.GRPCAddress(),
		TLSCertFile: cfg.TLSCertFile,
		TLSKeyFile:  cfg.TLSKeyFile,
		Reflection:  cfg.GRPCReflection,
	}, logger, jwtService)
	if err != nil {
		return err
	}

	// HTTP server.
	httpServer := &http.Server{
		Addr: cfg.HTTPAddress(),
		Handler: rest.NewRouter(rest.RouterConfig{
			Risk:      rest.NewRiskHandler(evaluateRiskUC, getAlertUC, logger),
			Health:    rest.NewHealthHandler(serviceName, checks, logger),
			Metrics:   metricsHandler,
			JWT:       jwtService,
			RateLimit: cfg.HTTPRateLimit,
			Logger:    logger,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start servers.
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("risk-orchestrator started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
		"environment", cfg.Environment,
	)

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown: stop intake first, then drain alerts.
	logger.Info("shutting down risk-orchestrator")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	grpcServer.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		logger.Error("alert pipeline did not drain", "error", err)
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("meter provider shutdown error", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}

	logger.Info("risk-orchestrator stopped")
	return nil
}

// buildAlertStore opens the configured alert store and returns its readiness
// checks and a close func.
func buildAlertStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.AlertStore, map[string]rest.CheckFunc, func(), error) {
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connectCancel()

	switch cfg.AlertStore {
	case config.StorePostgres:
		if err := pgpkg.RunMigrations(cfg.DatabaseURL, postgres.Migrations, postgres.MigrationsDir); err != nil {
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := pgpkg.NewPool(connectCtx, pgpkg.Config{
			URL:            cfg.DatabaseURL,
			MaxConns:       cfg.DBMaxConns,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info("connected to database")
		checks := map[string]rest.CheckFunc{
			"postgres": func(ctx context.Context) error { return pgpkg.HealthCheck(ctx, pool) },
		}
		return postgres.NewAlertStore(pool), checks, pool.Close, nil

	case config.StoreRedis:
		client, err := redisinfra.NewClient(connectCtx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to redis")
		checks := map[string]rest.CheckFunc{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}
		return redisinfra.NewAlertStore(client, cfg.AlertTTL), checks, func() { _ = client.Close() }, nil

	default:
		logger.Warn("using in-memory alert store, alerts are lost on restart")
		return memory.NewAlertStore(), nil, func() {}, nil
	}
}

// buildPublisher connects the alert bus. Without brokers alerts are only
// logged.
func buildPublisher(cfg *config.Config, logger *slog.Logger) (port.AlertPublisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, alert events will be logged only")
		return memory.NewPublisher(logger), func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(pkgkafka.Config{
		Brokers:       cfg.KafkaBrokers,
		WriteTimeout:  cfg.Kafka.WriteTimeout,
		TLS:           cfg.Kafka.TLS,
		SASLEnabled:   cfg.Kafka.SASLEnabled,
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}
	closeFn := func() {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close error", "error", err)
		}
	}
	return kafkainfra.NewAlertPublisher(producer, logger), closeFn, nil
}

// buildScoringModel selects the network leg to the scoring service.
func buildScoringModel(cfg *config.Config) (port.ScoringModel, error) {
	switch cfg.ScorerTransport {
	case config.ScorerHTTP:
		var tlsCfg *tls.Config
		if cfg.ScorerTLS {
			var err error
			if tlsCfg, err = tlsutil.ClientConfig(cfg.ScorerCAFile, false); err != nil {
				return nil, fmt.Errorf("scorer TLS: %w", err)
			}
		}
		return scoring.NewHTTPModel(cfg.ScorerAddress, int(cfg.ScorerMaxConns), tlsCfg), nil

	case config.ScorerRules:
		return scoring.RuleModel{}, nil

	default:
		var creds credentials.TransportCredentials = insecure.NewCredentials()
		if cfg.ScorerTLS {
			tlsCreds, err := tlsutil.ClientTLSConfig(cfg.ScorerCAFile, false)
			if err != nil {
				return nil, fmt.Errorf("scorer TLS: %w", err)
			}
			creds = tlsCreds
		}
		return scoring.NewGRPCModel(cfg.ScorerAddress, creds)
	}
}
