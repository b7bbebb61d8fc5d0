// Command server runs the name registry: HTTP API, record store, resolve
// cache and event publisher. main only wires dependencies; business logic
// lives in the internal packages.
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

	"golang.org/x/sync/errgroup"

	"registrar/internal/adminauth"
	"registrar/internal/billing"
	"registrar/internal/platform/config"
	"registrar/internal/platform/httpserver"
	"registrar/internal/platform/logger"
	"registrar/internal/platform/postgres"
	platformredis "registrar/internal/platform/redis"
	"registrar/internal/registry/events"
	"registrar/internal/registry/fees"
	registryhandler "registrar/internal/registry/handler"
	regmetrics "registrar/internal/registry/metrics"
	"registrar/internal/registry/service"
	"registrar/internal/registry/store"
	"registrar/internal/registry/tlds"
	httptransport "registrar/internal/transport/http"
	id "registrar/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	admin, err := id.ParseAccountID(cfg.AdminAccount)
	if err != nil {
		return errors.New("REGISTRAR_ADMIN_ACCOUNT must be a valid account id")
	}
	treasury := admin
	if cfg.TreasuryAccount != "" {
		if treasury, err = id.ParseAccountID(cfg.TreasuryAccount); err != nil {
			return errors.New("REGISTRAR_TREASURY_ACCOUNT must be a valid account id")
		}
	}
	if cfg.AdminKeyHash == "" {
		return errors.New("REGISTRAR_ADMIN_KEY_HASH is required")
	}

	// Record store: postgres when configured, in-memory otherwise.
	var records store.Store
	var db *sql.DB
	if db, err = postgres.Open(ctx, cfg.PostgresURL); err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		records = pg
		log.Info("record store: postgres")
	} else {
		records = store.NewInMemory()
		log.Warn("record store: in-memory, state will not survive restarts")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}

	feeTable := fees.NewTable()
	tldSet := tlds.NewSet()
	seed, err := cfg.LoadSeed()
	if err != nil {
		return err
	}
	if seed != nil {
		for _, tld := range seed.TLDs {
			if err := tldSet.Add(tld); err != nil {
				return err
			}
		}
		for _, fee := range seed.Fees {
			if err := feeTable.SetPrice(fees.Bucket(fee.Bucket), fees.Amount(fee.Price)); err != nil {
				return err
			}
		}
	}

	metrics := regmetrics.New()
	ledger := billing.NewLedger(billing.WithLogger(log))

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics),
		service.WithTreasury(treasury),
	}

	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := events.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		publisher = events.NewPublisher(sink,
			events.WithLogger(log),
			events.WithDropCounter(func() { metrics.EventsDropped.Inc() }),
		)
		opts = append(opts, service.WithEmitter(publisher))
		log.Info("event sink: kafka", "topic", cfg.KafkaTopic)
	}

	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithResolveCache(store.NewResolveCache(redisClient.Client)))
		log.Info("resolve cache: redis")
	}

	engine, err := service.New(records, feeTable, tldSet, ledger, admin, opts...)
	if err != nil {
		return err
	}

	auth := adminauth.New(cfg.JWTSigningKey, []byte(cfg.AdminKeyHash), admin, cfg.TokenTTL)
	registryH := registryhandler.New(engine, tldSet, feeTable, log)
	adminH := registryhandler.NewAdmin(engine, auth, log)

	checks := map[string]httptransport.HealthChecker{}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	if db != nil {
		checks["postgres"] = dbChecker{db}
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Registry: registryH,
		Admin:    adminH,
		Auth:     auth,
		Logger:   log,
		Checks:   checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	if publisher != nil {
		group.Go(func() error {
			publisher.Run(groupCtx)
			return nil
		})
	}
	group.Go(func() error {
		log.Info("registrar listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

type dbChecker struct{ db *sql.DB }

func (c dbChecker) Health(ctx context.Context) error { return c.db.PingContext(ctx) }
