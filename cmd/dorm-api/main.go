package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dormtycoon/internal/api"
	"dormtycoon/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	server := api.New(cfg, logger, nil)
	go server.RunJanitor(ctx, janitorInterval(cfg.SessionTTL))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("dorm api listening",
		"addr", cfg.Addr,
		"variant", cfg.Rules.Variant,
		"session_ttl", cfg.SessionTTL.String(),
		"max_sessions", cfg.MaxSessions,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func janitorInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every < 10*time.Second {
		return 10 * time.Second
	}
	if every > 5*time.Minute {
		return 5 * time.Minute
	}
	return every
}
