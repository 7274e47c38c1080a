// Command rmigateway runs the FANUC RMI gateway: it holds one driver
// connection and program executor per configured robot, persists programs
// and saved connections across Postgres and Redis, and serves the
// client-facing websocket API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fanuc-rmi/rmigateway/internal/config"
	"github.com/fanuc-rmi/rmigateway/internal/dispatch"
	"github.com/fanuc-rmi/rmigateway/internal/driver"
	mw "github.com/fanuc-rmi/rmigateway/internal/middleware"
	"github.com/fanuc-rmi/rmigateway/internal/session"
	"github.com/fanuc-rmi/rmigateway/internal/store"
	"github.com/fanuc-rmi/rmigateway/internal/store/pgstore"
	"github.com/fanuc-rmi/rmigateway/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging.Level)
	defer logger.Sync()

	logger.Info("starting rmigateway", zap.Int("port", cfg.Server.Port))

	programs, err := pgstore.New(cfg.Store.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	kv, err := redisstore.New(cfg.Store.RedisURL, logger)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	persistence := store.NewComposite(programs, kv, programs.Close, kv.Close)
	defer persistence.Close()

	clients := session.NewClientManager(logger)
	dispatcher := dispatch.New(clients, persistence, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driverCfg := driverConfig(cfg)
	robot := session.NewRobotConnection(cfg.Robot.ID, cfg.Robot.Addr, driverCfg, logger)
	dispatcher.RegisterRobot(ctx, robot)

	if err := robot.Driver.Connect(ctx); err != nil {
		logger.Warn("initial robot connection failed, will not retry automatically", zap.Error(err))
	}

	wsServer := dispatch.NewWebSocketServer(dispatcher, clients, logger)

	rateLimiter := mw.NewRateLimiter(120, logger)
	router := chi.NewRouter()
	router.Get("/ws", wsServer.HandleWebSocket)
	router.Get("/health", wsServer.HealthHandler)
	router.Get("/ready", wsServer.HealthHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rateLimiter.Middleware(mw.LoggingMiddleware(logger)(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down gracefully")
	cancel()
	_ = robot.Driver.Disconnect(context.Background())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("rmigateway stopped")
}

func driverConfig(cfg *config.Config) driver.Config {
	return driver.Config{
		Addr:             cfg.Robot.Addr,
		InitPort:         cfg.Robot.InitPort,
		Retries:          cfg.Driver.Retries,
		RetryBackoff:     cfg.Driver.RetryBackoff(),
		HandshakeTimeout: cfg.Driver.HandshakeTimeout(),
		QueueCapacity:    cfg.Driver.QueueCapacity,
	}
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
