// Command server wires the cardvault HTTP service: stores, services,
// handlers, and the lifecycle around them. Business logic lives in the
// internal service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cardHandler "cardvault/internal/card/handler"
	cardMetrics "cardvault/internal/card/metrics"
	cardService "cardvault/internal/card/service"
	cardStore "cardvault/internal/card/store"
	"cardvault/internal/events"
	"cardvault/internal/jwttoken"
	"cardvault/internal/platform/config"
	"cardvault/internal/platform/httpserver"
	"cardvault/internal/platform/logger"
	"cardvault/internal/platform/metrics"
	platformpg "cardvault/internal/platform/postgres"
	platformredis "cardvault/internal/platform/redis"
	"cardvault/internal/ratelimit"
	txHandler "cardvault/internal/transaction/handler"
	txMetrics "cardvault/internal/transaction/metrics"
	txService "cardvault/internal/transaction/service"
	txStore "cardvault/internal/transaction/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		cards        cardStore.Store
		transactions txService.TransactionStore
		txLister     cardHandler.TransactionLister
	)
	if cfg.PostgresURL != "" {
		db, err := platformpg.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		pgTx := txStore.NewPostgres(db)
		cards = cardStore.NewPostgres(db)
		transactions = pgTx
		txLister = pgTx
		log.Info("using postgres stores")
	} else {
		memCards := cardStore.NewInMemory()
		memTx := txStore.NewInMemory()
		memCards.OnDelete(memTx.RemoveByCard)
		cards = memCards
		transactions = memTx
		txLister = memTx
		log.Info("using in-memory stores")
	}

	// Event feed: kafka when brokers are configured, in-process buffer
	// otherwise.
	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := kafka.Close(closeCtx); err != nil {
				log.Error("failed to close kafka publisher", "error", err)
			}
		}()
		publisher = kafka
		log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	}

	// Rate limiter: redis-backed when configured so the limit holds across
	// replicas, in-process fallback otherwise.
	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		limiter = ratelimit.NewRedis(redisClient.Client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		log.Info("using redis rate limiter")
	}

	httpMetrics := metrics.New()
	jwtValidator := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	cardSvc := cardService.New(cards,
		cardService.WithLogger(log),
		cardService.WithMetrics(cardMetrics.New()),
		cardService.WithPublisher(publisher),
	)
	txSvc := txService.New(cards, transactions,
		txService.WithLogger(log),
		txService.WithMetrics(txMetrics.New()),
		txService.WithPublisher(publisher),
	)

	router := chi.NewRouter()
	cardHandler.New(cardSvc, txLister, log, httpMetrics, jwtValidator).Register(router)
	txHandler.New(txSvc, log, httpMetrics, jwtValidator, limiter).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting cardvault", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("cardvault stopped")
}
