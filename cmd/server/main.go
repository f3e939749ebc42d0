// Command server runs the voting core: the HTTP API, the audit worker, and
// the shared infrastructure clients. Business logic lives in the internal
// service packages; main only wires dependencies and the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"plebis/internal/audit"
	jwttoken "plebis/internal/jwt_token"
	"plebis/internal/platform/config"
	"plebis/internal/platform/httpserver"
	"plebis/internal/platform/logger"
	platformmetrics "plebis/internal/platform/metrics"
	platformredis "plebis/internal/platform/redis"
	httptransport "plebis/internal/transport/http"
	"plebis/internal/voting/booth"
	votinghandler "plebis/internal/voting/handler"
	votingmetrics "plebis/internal/voting/metrics"
	"plebis/internal/voting/service"
	"plebis/internal/voting/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	servers, err := config.LoadBoothServers(cfg.BoothServersFile)
	if err != nil {
		return fmt.Errorf("load booth servers: %w", err)
	}

	recorder := audit.NewRecorder(1024, log)
	sink, closeSink, err := auditSink(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	defer closeSink()
	worker := audit.NewWorker(sink, recorder.Inbox(), log)

	pg := store.NewPostgres(db)
	votingMetrics := votingmetrics.New()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(votingMetrics),
		service.WithRecorder(recorder),
	}
	if cache != nil {
		opts = append(opts, service.WithCounterCache(cache.Client, config.CountersCacheTTL))
	}
	svc, err := service.New(
		pg.Votes(), pg.Elections(), pg.Locations(),
		booth.New(servers, cfg.Sandbox),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("build voting service: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "plebis", "plebis-voters")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	handler := votinghandler.New(svc, pg.Profiles(), validator, log)
	router := httptransport.NewRouter(log, platformmetrics.New(), handler)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(ctx)
	})
	group.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "sandbox", cfg.Sandbox)
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
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// auditSink picks the Kafka sink when brokers are configured and the local
// sink otherwise, so development does not need a broker.
func auditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("no kafka brokers configured, audit events stay in process")
		return audit.NewMemorySink(), func() {}, nil
	}
	sink, err := audit.NewKafkaSink(ctx, cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	return sink, sink.Close, nil
}
