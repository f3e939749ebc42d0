// Command classifier runs the territorial classification batch over the vote
// circles, and optionally the order consistency pass. It is deployed as a
// scheduled job; both passes are idempotent, so re-runs are safe.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"plebis/internal/platform/config"
	"plebis/internal/platform/logger"
	"plebis/internal/territory"
)

func main() {
	withOrders := flag.Bool("orders", false, "also reconcile order territory columns against comarcal circles")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log, *withOrders); err != nil {
		log.Error("classifier failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger, withOrders bool) error {
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

	opts := []territory.ClassifierOption{territory.WithLogger(log)}
	if withOrders {
		opts = append(opts, territory.WithOrderStore(territory.NewPostgresOrderStore(db)))
	}
	classifier, err := territory.NewClassifier(territory.NewPostgresCircleStore(db), opts...)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	stats, err := classifier.Run(ctx)
	if err != nil {
		return fmt.Errorf("run classification: %w", err)
	}
	log.Info("classification finished",
		"internal", stats.Internal,
		"spain", stats.Spain,
		"exterior", stats.Exterior,
		"orders", stats.Orders,
		"unmatched", stats.Unmatched,
	)
	return nil
}
