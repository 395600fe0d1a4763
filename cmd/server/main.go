package main // Entry point package

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/cache"
    "github.com/iliyamo/bus-seat-reservation/internal/config"
    "github.com/iliyamo/bus-seat-reservation/internal/database"
    "github.com/iliyamo/bus-seat-reservation/internal/gateway"
    "github.com/iliyamo/bus-seat-reservation/internal/handler"
    "github.com/iliyamo/bus-seat-reservation/internal/logging"
    "github.com/iliyamo/bus-seat-reservation/internal/middleware"
    "github.com/iliyamo/bus-seat-reservation/internal/queue"
    "github.com/iliyamo/bus-seat-reservation/internal/repository"
    "github.com/iliyamo/bus-seat-reservation/internal/router"
    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// backend is what the booking core needs from a storage driver.
type backend interface {
    service.Store
    service.VehicleCatalog
}

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win

    cfg, err := config.Load()
    if err != nil {
        log.Fatal(err)
    }
    logger, err := logging.New(cfg.Env)
    if err != nil {
        log.Fatal(err)
    }
    defer func() { _ = logger.Sync() }()

    if err := run(cfg, logger); err != nil {
        logger.Fatal("server stopped", zap.Error(err))
    }
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, func(), error) {
    switch cfg.StoreDriver {
    case "memory":
        vehicles, err := repository.ParseVehicleSeed(cfg.VehicleSeed)
        if err != nil {
            return nil, nil, err
        }
        logger.Info("using in-memory store", zap.Int("vehicles", len(vehicles)))
        return repository.NewMemoryStore(vehicles...), func() {}, nil
    default:
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            return nil, nil, fmt.Errorf("open database: %w", err)
        }
        if cfg.DBMigrate {
            if err := database.Migrate(ctx, db); err != nil {
                _ = db.Close()
                return nil, nil, fmt.Errorf("migrate: %w", err)
            }
        }
        return repository.NewMySQLStore(db), func() { _ = db.Close() }, nil
    }
}

func run(cfg config.Config, logger *zap.Logger) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    store, closeStore, err := openBackend(ctx, cfg, logger)
    if err != nil {
        return err
    }
    defer closeStore()

    rdb := config.NewRedisClient(config.LoadRedisConfig())
    if rdb == nil {
        logger.Warn("redis unavailable; rate limiting and caches disabled")
    } else {
        defer func() { _ = rdb.Close() }()
    }
    avail := cache.NewAvailability(rdb, cfg.AvailabilityTTL, logger)

    opts := []service.Option{
        service.WithLogger(logger),
        service.WithInvalidator(avail),
    }
    if cfg.BrokerEnabled {
        pub := queue.NewPublisher(cfg.RabbitURL, cfg.EventQueue, logger)
        defer func() { _ = pub.Close() }()
        opts = append(opts, service.WithEvents(pub))

        consumer := &queue.AuditConsumer{URL: cfg.RabbitURL, Queue: cfg.EventQueue, Path: cfg.AuditLogPath, Log: logger}
        go consumer.Run(ctx)
    }

    holds := service.NewHoldManager(store, store, service.NewLedger(),
        service.HoldConfig{DefaultTTL: cfg.HoldTTLDefault, MaxTTL: cfg.HoldTTLMax},
        opts...,
    )
    avail.SetSource(holds)

    sandbox, err := gateway.NewSandbox(cfg.GatewayCheckoutURL)
    if err != nil {
        return err
    }
    payments := service.NewCoordinator(holds, sandbox, logger)

    snap, err := store.LoadSnapshot(ctx)
    if err != nil {
        return fmt.Errorf("load snapshot: %w", err)
    }
    if err := holds.Restore(snap); err != nil {
        return fmt.Errorf("restore holds: %w", err)
    }
    payments.Restore(snap)
    logger.Info("state restored",
        zap.Int("holds", len(snap.Holds)),
        zap.Int("ledger_entries", len(snap.Entries)),
        zap.Int("sessions", len(snap.Sessions)),
    )

    go service.NewSweeper(holds, cfg.SweepInterval, logger).Start(ctx)

    e := echo.New()
    e.HideBanner = true
    e.Use(middleware.RequestLogger(logger))

    var mw router.Middleware
    if rl := config.LoadRateLimitConfig(); rl.Enabled {
        mw.RateLimit = middleware.NewTokenBucket(rl, rdb, logger)
    }
    if cc := config.LoadCacheConfig(); cc.Enabled {
        mw.ResponseCache = middleware.NewRedisCache(cc, rdb, logger)
    }
    router.Register(e, router.Handlers{
        Vehicles: handler.NewVehicleHandler(store, holds, avail),
        Holds:    handler.NewHoldHandler(holds, payments),
        Payments: handler.NewPaymentHandler(payments, holds, gateway.NewSigner(cfg.GatewaySecret)),
        Admin:    handler.NewAdminHandler(holds),
    }, mw, cfg.JWTSecret)

    addr := ":" + cfg.Port
    errCh := make(chan error, 1)
    go func() {
        logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
        close(errCh)
    }()

    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
    }
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    return e.Shutdown(shutdownCtx)
}
