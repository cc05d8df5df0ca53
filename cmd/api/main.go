package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/kasir-till/internal/config"
	"github.com/ariefcatur/kasir-till/internal/httpx"
	kafkax "github.com/ariefcatur/kasir-till/internal/kafka"
	"github.com/ariefcatur/kasir-till/internal/logging"
	"github.com/ariefcatur/kasir-till/internal/postgres"
	"github.com/ariefcatur/kasir-till/internal/receipt"
	"github.com/ariefcatur/kasir-till/internal/redisx"
	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/ariefcatur/kasir-till/internal/store/local"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	if cfg.SeedDemo {
		if seeded, err := sales.SeedIfEmpty(ctx, store, sales.DemoCatalog()); err != nil {
			log.Fatal("seed catalog", zap.Error(err))
		} else if seeded {
			log.Info("demo catalog installed")
		}
	}

	settings, err := sales.LoadSettings(ctx, store)
	if err != nil {
		log.Fatal("load settings", zap.Error(err))
	}

	// Cache idempotency: Redis kalau ada, kalau tidak in-memory
	var cache redisx.Cache = redisx.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewCache(rdb)
	}

	// Events
	var publisher sales.Publisher = kafkax.LogPublisher{Log: log}
	if len(cfg.KafkaBrokers) > 0 {
		bus := kafkax.NewBus(cfg.KafkaBrokers,
			[]string{sales.TopicTransactionSettled, sales.TopicStockPending}, 1024, log)
		bus.Start(ctx)
		defer bus.Close() // tutup inbox -> flush & close writer
		publisher = bus
	}

	settler, err := sales.NewSettler(sales.SettlerDeps{
		Store:     store,
		Publisher: publisher,
		Logger:    log,
		Producer:  cfg.ServiceName,
	})
	if err != nil {
		log.Fatal("settler", zap.Error(err))
	}

	ledger := sales.NewLedger(store)
	catalog := sales.NewCatalog(store)
	receipts := receipt.NewRenderer(nil)

	router := httpx.NewRouter(log)
	(&httpx.TillHandler{
		Sessions: sales.NewSessions(store),
		Settler:  settler,
		Settings: settings,
		Ledger:   ledger,
		Cache:    cache,
		IdemTTL:  cfg.IdempotencyTTL,
		Log:      log,
	}).Register(router)
	(&httpx.CatalogHandler{Catalog: catalog, LowStockThreshold: cfg.LowStockThreshold}).Register(router)
	(&httpx.LedgerHandler{Ledger: ledger, Settings: settings, Receipts: receipts}).Register(router)
	(&httpx.SettingsHandler{Settings: settings}).Register(router)
	(&httpx.BackupHandler{Store: store, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
}

func openStore(ctx context.Context, cfg config.Config) (sales.Store, func(), error) {
	if cfg.StoreBackend != config.BackendPostgres {
		s, err := local.Open(cfg.DataDir)
		return s, func() {}, err
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return &postgres.Store{DB: db}, db.Close, nil
}
