package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/kasir-till/internal/config"
	kafkax "github.com/ariefcatur/kasir-till/internal/kafka"
	"github.com/ariefcatur/kasir-till/internal/logging"
	"github.com/ariefcatur/kasir-till/internal/postgres"
	"github.com/ariefcatur/kasir-till/internal/reconciler"
	"github.com/ariefcatur/kasir-till/internal/redisx"
	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// The reconciler needs a store shared with the till, so it only runs against
// Postgres.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-reconciler"

	log, err := logging.New(service)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis dedup
	var cache redisx.Cache = redisx.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewCache(rdb)
	} else {
		log.Warn("REDIS_ADDR empty, dedup state is lost on restart")
	}

	bus := kafkax.NewBus(cfg.KafkaBrokers, []string{sales.TopicStockReconciled}, 256, log)
	bus.Start(ctx)

	svc := &reconciler.Service{
		Store:       &postgres.Store{DB: db},
		Cache:       cache,
		Publisher:   bus,
		Log:         log,
		ServiceName: service,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, sales.TopicStockPending, cfg.ReconcilerWorkers, log)
	go func() {
		log.Info("reconciler consumer started",
			zap.String("group", cfg.ReconcilerGroup),
			zap.String("topic", sales.TopicStockPending),
			zap.Int("workers", cfg.ReconcilerWorkers))
		if err := cons.Start(ctx, svc.HandleStockPending); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	bus.Close()
}
