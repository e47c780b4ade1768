package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/blob"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/migrate"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logger"
	"storefront/internal/publisher"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/shutdown"
	"storefront/internal/usecase"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Service:   "storefront-api",
		Env:       cfg.GoEnv,
		Level:     cfg.LogLevel,
		AddSource: cfg.GoEnv != "dev",
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	//DB
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.MigrateOnStart {
		if err := migrate.Up(cfg.PostgresURL()); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	//cart cache
	var cartCache repo.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the cache is optional, carts are read from the database
			log.Warn("redis unavailable", slog.String("addr", cfg.RedisAddr), slog.Any("err", err))
		}
		cartCache = cache.NewRedisCache(rdb, cfg.CartCacheTTL)
	}

	blobs := blob.NewLocalStore(cfg.BlobDir, cfg.BlobBaseURL)
	tx := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase
	cartUC := usecase.NewCartUsecase(tx, cartCache)
	checkoutUC := usecase.NewCheckoutUsecase(tx, cartCache)
	workflowUC := usecase.NewWorkflowUsecase(tx)
	proofUC := usecase.NewPaymentProofUsecase(tx, blobs)
	orderUC := usecase.NewOrderUsecase(tx, blobs)

	//Handler
	e := server.New(cfg, server.Handlers{
		Health:     handler.NewHealthHandler(sqlDB),
		Cart:       handler.NewCartHandler(cartUC, checkoutUC),
		Orders:     handler.NewOrderHandler(orderUC, proofUC),
		AdminOrder: handler.NewAdminOrderHandler(orderUC, workflowUC),
	})

	g, gctx := errgroup.WithContext(ctx)

	addr := cfg.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		w := publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer w.Close()
		relay := publisher.NewOutboxRelay(infraRepo.NewRepos(gormDB).Outbox(), w, cfg.OutboxPollInterval)
		g.Go(func() error {
			log.Info("outbox relay starting", slog.String("topic", cfg.KafkaTopic))
			return relay.Run(gctx)
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, outbox events stay unpublished")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("bye")
	return nil
}
