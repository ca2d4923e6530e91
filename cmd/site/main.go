package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OneTus27/site/internal/bot"
	"github.com/OneTus27/site/internal/config"
	"github.com/OneTus27/site/internal/logging"
	"github.com/OneTus27/site/internal/metrics"
	"github.com/OneTus27/site/internal/ratelimit"
	"github.com/OneTus27/site/internal/web"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (console logs)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Rate limiter ----
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		redisClient, err := ratelimit.Dial(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("rate limiter: redis")
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info().Msg("rate limiter: in-process")
	}

	// ---- Notification bot ----
	store := bot.NewRecipientStore(cfg.Bot.RecipientsFile, logger)
	nb, err := bot.New(bot.Options{
		Token:       cfg.Secrets.Token,
		Password:    cfg.Secrets.Password,
		AdminChatID: cfg.Secrets.AdminChatID,
		APIBaseURL:  cfg.Bot.APIBaseURL,
		Store:       store,
		Secrets:     config.NewEnvFile(cfg.EnvFile),
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	nb.RunInBackground()

	// ---- HTTP server ----
	srv := web.NewServer(nb, limiter, cfg.Secrets.AdminAPIKey, cfg.Server.StaticDir, logger)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Routes()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	nb.Shutdown()
	logger.Info().Msg("stopped")
}
