package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"stock_watchlist/internal/app/di"
	"stock_watchlist/internal/app/router"
	authadapters "stock_watchlist/internal/feature/auth/adapters"
	authentity "stock_watchlist/internal/feature/auth/domain/entity"
	authhandler "stock_watchlist/internal/feature/auth/transport/handler"
	authusecase "stock_watchlist/internal/feature/auth/usecase"
	quotehandler "stock_watchlist/internal/feature/quotes/transport/handler"
	watchlistadapters "stock_watchlist/internal/feature/watchlist/adapters"
	watchlisthandler "stock_watchlist/internal/feature/watchlist/transport/handler"
	watchlistusecase "stock_watchlist/internal/feature/watchlist/usecase"
	infradb "stock_watchlist/internal/platform/db"
	"stock_watchlist/internal/platform/http/handler"
	jwtmw "stock_watchlist/internal/platform/jwt"
	"stock_watchlist/internal/platform/metrics"
	infraredis "stock_watchlist/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env はローカル開発用。無くてもよい
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	models := append([]any{&authentity.User{}}, watchlistadapters.Models()...)
	db, err := infradb.OpenDB(models...)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close DB", "error", err)
		}
	}()

	// Redis
	var rdb *redisv9.Client
	if redisCfg := infraredis.LoadConfig(); redisCfg.Enabled() {
		if tmp, err := infraredis.NewRedisClient(ctx, redisCfg); err != nil {
			slog.Warn("Redis unavailable. Running with in-memory cache.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	queueMetrics := metrics.NewQueueMetricsWithOpts(metrics.QueueMetricsOpts{Namespace: "watchlist"})
	queueMetrics.MustRegister(reg)

	// JWT_SECRETチェック
	jwtCfg := jwtmw.LoadConfig()
	if jwtCfg.Secret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	// Queue
	queue := di.NewQuoteQueue(di.NewMarket(), rdb, queueMetrics)

	// Repository / Usecase / Handler
	authUC := authusecase.NewAuthUsecase(authadapters.NewUserGorm(db), jwtmw.NewGenerator(jwtCfg.Secret, jwtCfg.Expiration))
	watchlistUC := watchlistusecase.NewWatchlistUsecase(watchlistadapters.NewWatchlistRepository(db), queue)

	readiness := handler.NewReadiness(2 * time.Second).
		Register("database", sqlDB.PingContext)
	if rdb != nil {
		readiness.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	r := router.NewRouter(jwtCfg.Secret,
		authhandler.NewAuthHandler(authUC),
		quotehandler.NewQuoteHandler(queue),
		watchlisthandler.NewWatchlistHandler(watchlistUC),
		readiness,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// SSEの接続もシャットダウン時に閉じる
		BaseContext: func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		return queue.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
