package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/swaadanna/storefront/internal/audit"
	"github.com/swaadanna/storefront/internal/cache"
	"github.com/swaadanna/storefront/internal/catalog"
	"github.com/swaadanna/storefront/internal/config"
	httpapi "github.com/swaadanna/storefront/internal/http"
	"github.com/swaadanna/storefront/internal/logger"
	"github.com/swaadanna/storefront/internal/notifier"
	"github.com/swaadanna/storefront/internal/publisher"
	"github.com/swaadanna/storefront/internal/repository"
	"github.com/swaadanna/storefront/internal/service"
)

const serviceName = "storefront.OrderAPI"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	zerolog.DefaultContextLogger = &log
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront api stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Msg("storefront api starting")
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	// Orders
	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		return fmt.Errorf("run order migrations: %w", err)
	}
	log.Info().Msg("order migrations completed")

	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer products.Close()

	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		return fmt.Errorf("run catalog migrations: %w", err)
	}

	// Cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	// Audit trail
	mongoDB, err := audit.Connect(startCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoDB.Client().Disconnect(ctx)
	}()

	auditLog := audit.NewMongoLog(mongoDB)
	if err := auditLog.CreateIndexes(startCtx); err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}

	orders := service.NewOrderService(repo, cache.NewRedisCache(rdb), auditLog, log)

	var wg sync.WaitGroup
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Outbox -> Kafka
	outbox := publisher.NewOutboxPublisher(repo, log, cfg.EventsTopic, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outbox.Run(bgCtx)
	}()

	// Kafka -> email + admin channel
	consumer := notifier.NewConsumer(orders, newMailer(cfg, log), newAdminChannel(cfg, log), log,
		cfg.EventsTopic, cfg.ConsumerGrp, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(bgCtx)
	}()

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Orders:         orders,
		Catalog:        products,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		HealthChecks: map[string]httpapi.HealthCheck{
			"postgres": repo.Ping,
			"catalog":  products.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"mongodb":  func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) },
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Ops gRPC listener: health and reflection only.
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on grpc port: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc health listening")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down storefront api")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server failed, shutting down")
	}

	healthServer.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	grpcServer.GracefulStop()
	bgCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("background workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("background workers did not stop in time")
	}

	if err := outbox.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close outbox writer")
	}
	consumer.Close()
	log.Info().Msg("storefront api stopped")
	return serveErr
}

func newMailer(cfg *config.Config, log zerolog.Logger) notifier.Mailer {
	if cfg.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set, confirmation emails are only logged")
		return notifier.NewLogMailer(log)
	}
	return notifier.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
}

func newAdminChannel(cfg *config.Config, log zerolog.Logger) notifier.AdminChannel {
	if cfg.AdminWebhookURL == "" {
		return notifier.NewLogChannel(log)
	}
	return notifier.NewWebhookChannel(cfg.AdminWebhookURL, log)
}
