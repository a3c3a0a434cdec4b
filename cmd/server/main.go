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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tempora/internal/audit"
	"tempora/internal/db"
	"tempora/internal/platform/config"
	"tempora/internal/platform/httpserver"
	"tempora/internal/platform/logger"
	httpmetrics "tempora/internal/platform/metrics"
	"tempora/internal/platform/middleware"
	platformredis "tempora/internal/platform/redis"
	"tempora/internal/platform/token"
	"tempora/internal/record/handler"
	"tempora/internal/record/kinds"
	recordmetrics "tempora/internal/record/metrics"
	"tempora/internal/record/query"
	"tempora/internal/record/service"
	"tempora/internal/record/store"
)

// main wires dependencies and runs the HTTP server and the journal worker
// until a shutdown signal arrives. Business logic lives under internal/.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. Without a DSN the engine runs on in-memory stores, which is
	// enough for local development against the HTTP API.
	var (
		versions   store.VersionStore
		dispatches store.DispatchStore
		journal    audit.Store
	)
	if cfg.PostgresDSN != "" {
		conn, err := db.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		if err := db.Migrate(conn); err != nil {
			log.Error("run migrations", "error", err)
			os.Exit(1)
		}
		versions = store.NewPostgresVersionStore(conn)
		dispatches = store.NewPostgresDispatchStore(conn)
		journal = audit.NewPostgresStore(conn)
	} else {
		log.Warn("no postgres dsn configured, using in-memory stores")
		versions = store.NewMemoryVersionStore()
		dispatches = store.NewMemoryDispatchStore()
		journal = audit.NewMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dispatches = store.NewCachedDispatchStore(dispatches, redisClient.Client, cfg.DispatchCacheTTL, log)
	}

	publisher := audit.NewPublisher(journal, log)

	group, ctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := audit.NewProducer(ctx, cfg.KafkaBrokers, cfg.JournalTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		worker := audit.NewWorker(producer, publisher.Outbox(), log)
		group.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	catalog := kinds.Default()
	recMetrics := recordmetrics.New(prometheus.DefaultRegisterer)
	dispatcher := service.NewService(
		versions, dispatches, store.NewSlotLocker(), catalog, publisher, log,
		service.WithMetrics(recMetrics),
		service.WithLockWait(cfg.SlotLockWait),
	)
	queries := query.NewEngine(versions, catalog, recMetrics)
	records := handler.New(dispatcher, queries, catalog, journal, log)

	tokens := token.NewService(cfg.JWTSigningKey, "tempora")
	httpMetrics := httpmetrics.New()

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Metadata,
		middleware.Logger(log),
		middleware.Latency(httpMetrics),
		middleware.Timeout(30*time.Second),
	)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(tokenAdapter{tokens}, log))
		records.Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting tempora", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// tokenAdapter bridges the jwt token service to the auth middleware.
type tokenAdapter struct {
	svc *token.Service
}

func (a tokenAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{TenantID: claims.TenantID, ActorID: claims.ActorID}, nil
}
