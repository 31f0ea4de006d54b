package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/cafe-ordering/internal/cache"
	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/database"
	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/logger"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/queue"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/router"
	"github.com/iliyamo/cafe-ordering/internal/service"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Setup(cfg.Env, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server_exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.RunMigrations(db); err != nil {
			return err
		}
		log.Info("migrations_applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	// Redis is optional: without it both caches are no-ops.
	rdbCfg := cfg.Cache
	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		if cfg.Cache.Enabled {
			log.Warn("redis_unavailable", slog.String("effect", "caches disabled"))
		}
		rdbCfg.Enabled = false
	} else {
		defer rdb.Close()
	}
	sessions := cache.NewSessionCache(rdb, rdbCfg, rec)
	orderCache := cache.NewOrderCache(rdb, rdbCfg, rec)

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		events = queue.NewPublisher(cfg.Events)
		consumer := queue.NewConsumer(cfg.Events, queue.DefaultAuditLog, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("order_consumer_stopped", slog.Any("err", err))
			}
		}()
	}

	signer := utils.NewTokenSigner(cfg.Auth.JWTSecret, cfg.Auth.RefreshSecret, cfg.Auth.Issuer, cfg.Auth.Audience,
		cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, time.Now)
	tokens := service.NewTokenIssuer(signer, repository.NewTokenRepo(db))
	tokens.StartJanitor(ctx, cfg.TokenJanitorInterval, log)

	hasher := utils.NewPasswordHasher(cfg.Hash.MemoryKiB, cfg.Hash.Time, cfg.Hash.Threads)
	auth := service.NewAuthService(repository.NewUserRepo(db), hasher, tokens, sessions, rec)
	orders := service.NewOrderService(repository.NewOrderRepo(db), repository.NewMenuRepo(db), orderCache, events,
		rec, cfg.CatalogTimeout, service.WithLocation(cfg.Location()))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(log))

	authH := handler.NewAuthHandler(auth)
	orderH := handler.NewOrderHandler(orders)
	router.RegisterRoutes(e, db, metrics.Handler(reg))
	router.RegisterAuth(e, authH, tokens)
	router.RegisterStorefront(e, orderH)
	router.RegisterAdmin(e, authH, orderH, tokens)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
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

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
