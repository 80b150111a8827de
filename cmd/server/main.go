// Server entrypoint. main wires configuration, storage, services, and the
// HTTP router; business logic lives in the internal packages.
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

	allochandler "organlink/internal/allocation/handler"
	allocservice "organlink/internal/allocation/service"
	allocstore "organlink/internal/allocation/store"
	jwttoken "organlink/internal/jwt_token"
	"organlink/internal/matching/engine"
	"organlink/internal/matching/finder"
	matchhandler "organlink/internal/matching/handler"
	matchservice "organlink/internal/matching/service"
	"organlink/internal/notification"
	notifhandler "organlink/internal/notification/handler"
	notifkafka "organlink/internal/notification/kafka"
	"organlink/internal/notification/publisher"
	notifmemory "organlink/internal/notification/store/memory"
	notifpostgres "organlink/internal/notification/store/postgres"
	"organlink/internal/platform/config"
	"organlink/internal/platform/httpserver"
	"organlink/internal/platform/logger"
	platformmetrics "organlink/internal/platform/metrics"
	platformredis "organlink/internal/platform/redis"
	"organlink/internal/policy/adjuster"
	policystore "organlink/internal/policy/store"
	registrystore "organlink/internal/registry/store"
	donorstore "organlink/internal/registry/store/donor"
	hospitalstore "organlink/internal/registry/store/hospital"
	recipientstore "organlink/internal/registry/store/recipient"
	httptransport "organlink/internal/transport/http"
	id "organlink/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx := context.Background()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("postgres connected")
	} else {
		log.Warn("no POSTGRES_DSN configured, using in-memory stores")
	}

	var (
		recipients registrystore.RecipientStore
		donors     registrystore.DonorStore
		hospitals  registrystore.HospitalStore
		policies   policystore.Store
		inbox      notification.Store
	)
	if db != nil {
		recipients = recipientstore.NewPostgresStore(db)
		donors = donorstore.NewPostgresStore(db)
		hospitals = hospitalstore.NewPostgresStore(db)
		policies = policystore.NewPostgresStore(db)
		inbox = notifpostgres.New(db)
	} else {
		recipients = recipientstore.NewInMemoryStore()
		donors = donorstore.NewInMemoryStore()
		hospitals = hospitalstore.NewInMemoryStore()
		policies = policystore.NewInMemoryStore()
		inbox = notifmemory.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		policies = policystore.NewCachedStore(policies, redisClient.Client, cfg.PolicyCacheTTL, log)
		log.Info("policy cache enabled", "ttl", cfg.PolicyCacheTTL.String())
	}

	var sink allocservice.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := notifkafka.NewSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("kafka notification sink enabled", "topic", cfg.Kafka.Topic)
	} else {
		pub := publisher.NewPublisher(inbox, publisher.WithLogger(log))
		defer pub.Close()
		sink = pub
	}

	matching := matchservice.NewService(
		recipients,
		hospitals,
		finder.New(donors, hospitals),
		engine.New(engine.WithMinViableScore(cfg.MinViableScore)),
		adjuster.New(policies, log),
		log,
	)

	var allocationTx allocservice.Tx
	if db != nil {
		allocationTx = newAllocationPostgresTx(db)
	} else {
		allocationTx = allocservice.NewMemoryTx(allocservice.Stores{
			Requests:   allocstore.NewInMemoryStore(),
			Recipients: recipients,
			Donors:     donors,
		})
	}
	allocation := allocservice.NewService(allocationTx, sink, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "organlink", "organlink-hospitals")
	logDevToken(jwtService, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       platformmetrics.New(),
		Validator:     jwtService,
		APIKeyHash:    cfg.APIKeyHash,
		Matching:      matchhandler.New(matching, log),
		Allocation:    allochandler.New(allocation, log),
		Notifications: notifhandler.New(inbox, log),
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// logDevToken prints a ready-to-use bearer token when DEV_HOSPITAL_ID is set,
// for local testing only.
func logDevToken(jwtService *jwttoken.JWTService, log *slog.Logger) {
	raw := os.Getenv("DEV_HOSPITAL_ID")
	if raw == "" {
		return
	}
	hospitalID, err := id.ParseHospitalID(raw)
	if err != nil {
		log.Warn("invalid DEV_HOSPITAL_ID", "error", err)
		return
	}
	token, err := jwtService.GenerateHospitalToken(hospitalID, 24*time.Hour)
	if err != nil {
		log.Warn("dev token generation failed", "error", err)
		return
	}
	log.Info("dev hospital token issued", "hospital_id", hospitalID.String(), "token", token)
}
