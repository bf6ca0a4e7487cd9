package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/optiplus/storefront/internal/auth"
	"github.com/optiplus/storefront/internal/config"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/httpapi"
	"github.com/optiplus/storefront/internal/logging"
	"github.com/optiplus/storefront/internal/notify"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/shop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database")

	sessions, closeSessions := newSessionStore(cfg, logger)
	defer closeSessions()

	svc := shop.NewService(db, notify.NewDispatcher(newMailSender(cfg, logger), logger), logger)
	api := httpapi.NewServer(svc, sessions,
		auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		cfg.Session,
		logger,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newSessionStore(cfg *config.Config, logger *zap.Logger) (session.Store, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(cfg.Session.TTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	logger.Info("using redis session store", zap.String("addr", cfg.Redis.Addr))
	return session.NewRedisStore(client, cfg.Session.TTL), func() { client.Close() }
}

func newMailSender(cfg *config.Config, logger *zap.Logger) notify.Sender {
	if cfg.Mail.Host == "" {
		logger.Info("MAIL_HOST not set, confirmation emails are logged")
		return notify.NewLogSender(logger)
	}
	return notify.NewSMTPSender(cfg.Mail)
}
