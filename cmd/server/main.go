// Command server runs the turnstile check-in gateway.
//
// Backends are chosen from configuration: Postgres and Redis when their URLs
// are set, in-memory fallbacks otherwise so the binary runs standalone in dev.
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

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	activityhandler "turnstile/internal/activity/handler"
	activitystore "turnstile/internal/activity/store"
	checkinhandler "turnstile/internal/checkin/handler"
	checkinmetrics "turnstile/internal/checkin/metrics"
	checkinservice "turnstile/internal/checkin/service"
	checkinstore "turnstile/internal/checkin/store"
	identityhandler "turnstile/internal/identity/handler"
	identityservice "turnstile/internal/identity/service"
	identitystore "turnstile/internal/identity/store"
	"turnstile/internal/identity/token"
	"turnstile/internal/platform/config"
	"turnstile/internal/platform/httpserver"
	"turnstile/internal/platform/logger"
	"turnstile/internal/platform/metrics"
	platformredis "turnstile/internal/platform/redis"
	"turnstile/internal/session/cooldown"
	sessionhandler "turnstile/internal/session/handler"
	sessionmetrics "turnstile/internal/session/metrics"
	sessionservice "turnstile/internal/session/service"
	sessionstore "turnstile/internal/session/store"
	httptransport "turnstile/internal/transport/http"
	"turnstile/pkg/platform/audit"
	auditkafka "turnstile/pkg/platform/audit/kafka"
	auditmemory "turnstile/pkg/platform/audit/memory"
	"turnstile/pkg/platform/audit/publisher"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var pool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	auditor, closeAudit, err := buildAuditor(cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	// Stores. The in-memory check-in runner shares the activity catalog so
	// both see the same registration counters.
	var activities activityhandler.Store
	var runner checkinstore.TxRunner
	var identities identitystore.Store
	var cooldowns cooldown.Store
	if db != nil {
		activities = activitystore.NewPostgres(db)
		runner = checkinstore.NewPgxRunner(pool, checkinstore.WithMaxRetries(cfg.TxMaxRetries))
		identities = identitystore.NewPostgres(db)
		cooldowns = cooldown.NewPostgres(db)
	} else {
		memCatalog := activitystore.NewInMemory()
		activities = memCatalog
		runner = checkinstore.NewInMemoryRunner(memCatalog)
		identities = identitystore.NewInMemory()
		cooldowns = cooldown.NewInMemory()
	}

	var sessions sessionstore.Store
	if rdb != nil {
		sessions = sessionstore.NewRedis(rdb.Client)
		cooldowns = cooldown.NewRedis(rdb.Client)
	} else {
		sessions = sessionstore.NewInMemory()
	}

	tokens := token.NewService(cfg.JWTSigningKey)
	validator := token.NewAdapter(tokens)

	identitySvc := identityservice.New(identities, auditor, log)
	sessionSvc := sessionservice.New(sessions, cooldowns, sessionmetrics.New(), auditor, log,
		sessionservice.WithSessionTTL(cfg.SessionTTL),
		sessionservice.WithCooldownWindow(cfg.NetworkCooldown),
		sessionservice.WithTouchInterval(cfg.TouchInterval),
	)
	checkinSvc := checkinservice.New(runner, checkinmetrics.New(), auditor, log)

	watcher := sessionservice.NewWatcher(sessionSvc, cfg.WatchInterval, log)
	defer watcher.Close()

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Handlers: []httptransport.Registrar{
			identityhandler.New(identitySvc, log),
			sessionhandler.New(sessionSvc, identitySvc, tokens, watcher, validator, log, cfg.SessionTTL),
			activityhandler.New(activities, validator, log),
			checkinhandler.New(checkinSvc, activities, sessionSvc, validator, log),
		},
		Health: healthChecks(db, rdb),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildAuditor picks the Kafka sink when brokers are configured, the
// in-memory store otherwise. The returned func flushes and closes both.
func buildAuditor(cfg config.Server, log *slog.Logger) (*publisher.Publisher, func(), error) {
	var store audit.Store = auditmemory.NewInMemoryStore()
	closeStore := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := auditkafka.New(cfg.KafkaBrokers)
		if err != nil {
			return nil, nil, err
		}
		store = kafkaStore
		closeStore = kafkaStore.Close
		log.Info("audit events publishing to kafka", "brokers", cfg.KafkaBrokers)
	}

	pub := publisher.NewPublisher(store, publisher.WithAsyncBuffer(256))
	return pub, func() {
		pub.Close()
		closeStore()
	}, nil
}

func healthChecks(db *sql.DB, rdb *platformredis.Client) []httptransport.HealthCheck {
	var checks []httptransport.HealthCheck
	if db != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
	}
	if rdb != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: rdb.Health})
	}
	return checks
}
