package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/dentalcare/libs/auth"
	"github.com/md-rashed-zaman/dentalcare/libs/db"
	"github.com/md-rashed-zaman/dentalcare/libs/grpcx"
	"github.com/md-rashed-zaman/dentalcare/libs/httpx"
	"github.com/md-rashed-zaman/dentalcare/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dentalcare/libs/otel"
	"github.com/md-rashed-zaman/dentalcare/libs/runtime"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/appointments"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/consumer"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/handlers"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/inbox"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/metrics"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/patients"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/storage"
)

func main() {
	if err := runtime.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	cfg, err := loadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := runtime.NewLoggerWithLevel(cfg.Service, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg settings, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(cfg.Service)
	if err != nil {
		return err
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	outboxRepo := outbox.NewRepository()
	store := storage.NewAppointmentStore(pool, outboxRepo)
	svc := appointments.New(store, catalog.Default(), logger, appointments.Options{
		HorizonDays: cfg.HorizonDays,
		Metrics:     m,
	})

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	startMessaging(ctx, cfg, pool, outboxRepo, m, logger)
	if len(cfg.KafkaBrokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	}

	limiter, limiterCheck := newLimiter(cfg)
	if limiterCheck != nil {
		checks = append(checks, *limiterCheck)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handlers.New(svc, logger).Register(mux, handlers.Routes{
		Auth:      auth.NewAuthenticator(cfg.AuthSecret),
		BookLimit: httpx.WithRateLimit(limiter, logger, cfg.RateLimitFailOpen),
	})

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "appointments")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.GRPCPort != "" {
		if err := startHealthServer(ctx, cfg, logger, checks); err != nil {
			return err
		}
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// startMessaging runs the outbox publisher and, when brokers are configured,
// the patient directory consumer.
func startMessaging(ctx context.Context, cfg settings, pool *db.Pool, outboxRepo *outbox.Repository, m *metrics.Metrics, logger *slog.Logger) {
	var writer outbox.MessageWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := kafkax.NewWriter(cfg.KafkaBrokers)
		go func() {
			<-ctx.Done()
			_ = w.Close()
		}()
		writer = w
	}
	publisher := outbox.NewPublisher(pool, outboxRepo, writer, logger, m, outbox.PublisherConfig{
		PollEvery: cfg.OutboxPoll,
		BatchSize: cfg.OutboxBatchSize,
	})
	go publisher.Run(ctx)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set; patient directory consumer disabled")
		return
	}
	reader := kafkax.NewReader(kafkax.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topics:  cfg.PatientTopics,
	})
	projector := patients.NewProjector()
	c := consumer.New(reader, pool, inbox.NewRepository(), logger, m, projector.Handle, consumer.Options{
		Permanent: consumer.IsPermanent(patients.ErrInvalidEvent),
	})
	go c.Run(ctx)
}

// newLimiter prefers the shared Redis window so every replica enforces one
// budget; without REDIS_ADDR each process keeps its own.
func newLimiter(cfg settings) (httpx.Limiter, *runtime.ReadyCheck) {
	if cfg.RedisAddr == "" {
		return httpx.NewRateLimiter(cfg.RateLimitPerMin, time.Minute), nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	check := runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
	return httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMin, time.Minute, cfg.Service+":book"), &check
}

func startHealthServer(ctx context.Context, cfg settings, logger *slog.Logger, checks []runtime.ReadyCheck) error {
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv, hs := grpcx.NewServer(logger)
	go grpcx.WatchReadiness(ctx, hs, cfg.Service, 5*time.Second, logger, checks...)
	go func() {
		logger.Info("grpc health server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		grpcSrv.GracefulStop()
	}()
	return nil
}
