package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/captcha-solver/internal/config"
	"github.com/example/captcha-solver/internal/handlers"
	"github.com/example/captcha-solver/internal/logging"
	"github.com/example/captcha-solver/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	var cache usecase.Cache
	if cfg.CacheEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, client := initRedis(ctx, cfg.RedisAddr, logger)
		cancel()
		defer client.Close()
		cache = redisCache
	} else {
		logger.Info("result cache disabled, REDIS_ADDR not set")
	}

	uc := usecase.NewSolveUseCase(cache, logger, cfg.MaxOptions, cfg.CacheTTL)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger))
	handlers.RegisterRoutes(r, uc, cfg.MaxBodyBytes)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("captcha solver listening", zap.String("addr", cfg.Addr()))
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) (*usecase.RedisCache, *redis.Client) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	cache := usecase.NewRedisCache(client)
	if err := cache.Ping(ctx); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err), zap.String("addr", addr))
	}
	zapLogger.Info("result cache enabled", zap.String("addr", addr))
	return cache, client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
