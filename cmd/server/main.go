package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"passage/internal/audit"
	auditmemory "passage/internal/audit/store/memory"
	auditpostgres "passage/internal/audit/store/postgres"
	candidatestore "passage/internal/candidate/store"
	"passage/internal/collection"
	collmetrics "passage/internal/collection/metrics"
	"passage/internal/collection/push/kafka"
	"passage/internal/collection/snapshot"
	"passage/internal/jwttoken"
	"passage/internal/pipeline/handler"
	pipelinemetrics "passage/internal/pipeline/metrics"
	"passage/internal/pipeline/sla"
	"passage/internal/pipeline/stage"
	"passage/internal/pipeline/transition"
	"passage/internal/platform/config"
	"passage/internal/platform/httpserver"
	"passage/internal/platform/logger"
	platformredis "passage/internal/platform/redis"
	httptransport "passage/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Persistence: Postgres when configured, in-memory otherwise (dev mode).
	var (
		persistence collection.Persistence
		intake      handler.Intake
		auditStore  audit.Store
	)
	if cfg.PostgresURL != "" {
		db, err := candidatestore.Open(cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := candidatestore.NewPostgres(db)
		persistence, intake = pg, pg
		auditStore = auditpostgres.New(db)
	} else {
		mem := candidatestore.NewInMemory()
		persistence, intake = mem, mem
		auditStore = auditmemory.New()
		log.Warn("POSTGRES_URL not set; running with in-memory persistence")
	}

	auditor := audit.NewPublisher(auditStore, audit.WithLogger(log))

	// Pipeline core.
	graph := stage.New(stage.Providers{})
	pipeMetrics := pipelinemetrics.New()
	executor, err := transition.New(graph,
		transition.WithLogger(log),
		transition.WithMetrics(pipeMetrics),
		transition.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("failed to build transition executor", "error", err)
		os.Exit(1)
	}
	slaEngine := sla.NewEngine(sla.DefaultPolicy(), sla.WithMetrics(pipeMetrics))

	// Sync coordinator: snapshot cache and push channel are both optional.
	coordOpts := []collection.Option{
		collection.WithLogger(log),
		collection.WithMetrics(collmetrics.New()),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		coordOpts = append(coordOpts,
			collection.WithSnapshotStore(snapshot.NewRedis(redisClient.Client, cfg.SessionKey)))
	} else {
		coordOpts = append(coordOpts, collection.WithSnapshotStore(snapshot.NewInMemory()))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		source, err := kafka.New(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Group:   cfg.Kafka.Group,
		}, kafka.WithLogger(log))
		if err != nil {
			log.Error("failed to build kafka push source", "error", err)
			os.Exit(1)
		}
		coordOpts = append(coordOpts, collection.WithPushSource(source))
	}

	coordinator, err := collection.New(persistence, coordOpts...)
	if err != nil {
		log.Error("failed to build coordinator", "error", err)
		os.Exit(1)
	}
	defer coordinator.Close()

	if err := coordinator.Start(ctx); err != nil {
		// Degraded start is survivable; the coordinator retries on demand.
		log.Warn("initial sync failed; starting degraded", "error", err)
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "passage", "passage-api")
	h := handler.New(coordinator, executor, slaEngine, intake, log)
	router := httptransport.NewRouter(h, tokens)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting passage server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
