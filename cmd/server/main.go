// main wires the service graph and keeps the server lifecycle small. Business
// logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"

	"enrolld/internal/audit"
	"enrolld/internal/ledger"
	"enrolld/internal/migration"
	"enrolld/internal/platform/config"
	"enrolld/internal/platform/httpserver"
	"enrolld/internal/platform/logger"
	"enrolld/internal/platform/metrics"
	platformredis "enrolld/internal/platform/redis"
	profilestore "enrolld/internal/profile/store"
	"enrolld/internal/provider"
	"enrolld/internal/signup"
	"enrolld/internal/signup/allocator"
	"enrolld/internal/signup/coordinator"
	"enrolld/internal/signup/ports"
	"enrolld/internal/signup/resolver"
	httptransport "enrolld/internal/transport/http"
)

const rateLimitWindow = time.Minute

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Development())
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores. Without a database URL everything runs in memory, which is
	// enough for local development against the fake provider.
	var (
		db           *sql.DB
		profiles     ports.ProfileStore
		ledgerStore  ledger.Store
		trackerStore migration.Store
		auditStore   audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		profiles = profilestore.NewPostgres(db)
		ledgerStore = ledger.NewPostgres(db)
		trackerStore = migration.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		profiles = profilestore.NewMemory()
		ledgerStore = ledger.NewMemoryStore()
		trackerStore = migration.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	var providerClient ports.ProviderClient
	if cfg.Provider.BaseURL != "" {
		client, err := provider.New(provider.Config{
			BaseURL:      cfg.Provider.BaseURL,
			ClientID:     cfg.Provider.ClientID,
			ClientSecret: cfg.Provider.ClientSecret,
			Timeout:      cfg.Provider.Timeout,
		})
		if err != nil {
			return err
		}
		providerClient = client
	} else {
		log.Warn("no identity provider configured, using in-memory fake")
		providerClient = provider.NewFake()
	}

	m := metrics.New()
	publisher := audit.NewPublisher(auditStore)

	alloc, err := allocator.New([]byte(cfg.AllocationSecret), profiles, allocator.WithLogger(log))
	if err != nil {
		return err
	}
	failureLedger, err := ledger.New(ledgerStore, ledger.WithLogger(log))
	if err != nil {
		return err
	}
	tracker, err := migration.NewTracker(trackerStore, migration.WithTrackerLogger(log))
	if err != nil {
		return err
	}
	coord, err := coordinator.New(providerClient, profiles, alloc, failureLedger, tracker,
		coordinator.WithLogger(log),
		coordinator.WithAuditPublisher(publisher),
		coordinator.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	res, err := resolver.New(providerClient, profiles, resolver.WithLogger(log))
	if err != nil {
		return err
	}
	service, err := signup.NewService(res, coord, tracker,
		signup.WithLogger(log),
		signup.WithAuditPublisher(publisher),
		signup.WithMetrics(m),
		signup.WithUpdateExisting(cfg.UpdateExisting),
	)
	if err != nil {
		return err
	}
	runner, err := migration.NewRunner(service, tracker,
		migration.WithRunnerLogger(log),
		migration.WithConcurrency(cfg.BatchConcurrency),
	)
	if err != nil {
		return err
	}

	// Rate limiting shares state via redis when configured.
	var limiter httptransport.Limiter
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiter = httptransport.NewRedisLimiter(redisClient, rateLimitWindow)
	} else {
		limiter = httptransport.NewMemoryLimiter(rateLimitWindow)
	}

	// Audit outbox worker needs both the durable outbox and a kafka cluster.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.DefaultProduceTopic(cfg.AuditTopic),
		)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()

		worker, err := audit.NewWorker(audit.NewPostgres(db), kafkaClient, cfg.AuditTopic,
			audit.WithWorkerLogger(log),
		)
		if err != nil {
			return err
		}
		go func() { _ = worker.Run(ctx) }()
	}

	handlerOpts := []httptransport.HandlerOption{httptransport.WithLogger(log)}
	if db != nil {
		handlerOpts = append(handlerOpts, httptransport.WithReadinessDB(db))
	}
	handler := httptransport.NewHandler(service, runner, handlerOpts...)
	router := httptransport.NewRouter(handler, limiter,
		httptransport.WithSignupRateLimit(cfg.SignupRateLimit),
		httptransport.WithBatchRateLimit(cfg.BatchRateLimit),
	)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("enrolld listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
