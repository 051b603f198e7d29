package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"chainalert/internal/contact"
	contacthandler "chainalert/internal/contact/handler"
	"chainalert/internal/contact/retention"
	"chainalert/internal/directory"
	directoryhandler "chainalert/internal/directory/handler"
	"chainalert/internal/jwtauth"
	"chainalert/internal/notification"
	notificationhandler "chainalert/internal/notification/handler"
	"chainalert/internal/platform/config"
	"chainalert/internal/platform/httpserver"
	"chainalert/internal/platform/logger"
	"chainalert/internal/platform/metrics"
	platformredis "chainalert/internal/platform/redis"
	"chainalert/internal/propagation"
	"chainalert/internal/push"
	"chainalert/internal/report"
	reporthandler "chainalert/internal/report/handler"
	httptransport "chainalert/internal/transport/http"
)

const (
	jwtIssuer   = "chainalert"
	jwtAudience = "chainalert-device"
)

// main wires the stores, the propagation engine, and the HTTP surface. All
// business logic lives in internal packages; this file only chooses between
// in-memory and durable backends based on configuration.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSigningKey == "" {
		cfg.JWTSigningKey = config.DevJWTSigningKey
		log.Warn("JWT_SIGNING_KEY not set, using the insecure development key; all tokens are forgeable")
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var (
		edgeStore  contact.Store
		dirStore   directory.Store
		noteStore  notification.Store
		reportRepo report.Store
	)
	if db != nil {
		edgeStore = contact.NewPostgresStore(db)
		dirStore = directory.NewPostgresStore(db)
		noteStore = notification.NewPostgresStore(db)
		reportRepo = report.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		edgeStore = contact.NewInMemoryStore()
		dirStore = directory.NewInMemoryStore()
		noteStore = notification.NewInMemoryStore()
		reportRepo = report.NewInMemoryStore()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dirStore = directory.NewCachedStore(dirStore, redisClient.Client, cfg.Redis.CacheTTL, log)
		log.Info("directory cache enabled")
	}

	var sender push.Sender
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSender, err := push.NewKafkaSender(cfg.KafkaBrokers, cfg.PushTopic, log)
		if err != nil {
			log.Error("kafka producer setup failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := kafkaSender.Close(ctx); err != nil {
				log.Warn("kafka producer close failed", "error", err)
			}
		}()
		sender = kafkaSender
		log.Info("kafka push sink enabled", "topic", cfg.PushTopic)
	} else {
		sender = push.NopSender{Logger: log}
		log.Warn("KAFKA_BROKERS not set, push delivery disabled")
	}

	propagator, err := propagation.NewService(edgeStore, dirStore, noteStore, sender, log, propagation.Config{
		MaxChainDepth:        cfg.Propagation.MaxChainDepth,
		RetentionDays:        cfg.Propagation.RetentionDays,
		EnableBatchedLookups: true,
	})
	if err != nil {
		log.Error("propagation setup failed", "error", err)
		os.Exit(1)
	}

	tokens := jwtauth.NewService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)
	reportService := report.NewService(reportRepo, propagator, log)
	inboxService := notification.NewService(noteStore, log)
	contactService := contact.NewService(edgeStore, log)
	deviceService := directory.NewService(dirStore, tokens, log)

	router := httptransport.NewRouter(
		directoryhandler.New(deviceService, log, m, tokens),
		contacthandler.New(contactService, log, m, tokens),
		reporthandler.New(reportService, log, m, tokens),
		notificationhandler.New(inboxService, log, m, tokens),
	)
	srv := httpserver.New(cfg.Addr, router)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := retention.NewSweeper(edgeStore, log, cfg.Propagation.RetentionDays, cfg.Propagation.SweepInterval)
	go func() {
		if err := sweeper.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("retention sweeper stopped", "error", err)
		}
	}()

	go func() {
		log.Info("starting chainalert", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
