package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orgball2608/social-feed-bot/internal/app"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
	"go.uber.org/fx"
)

func main() {
	log := logger.New(logger.Opts{Env: os.Getenv("APP_ENV")})

	bot := fx.New(
		fx.Logger(log),
		app.Module,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := bot.Start(startCtx); err != nil {
		log.Error("Failed to start feed bot", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("Shutting down feed bot")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := bot.Stop(stopCtx); err != nil {
		log.Error("Failed to stop feed bot", "error", err)
		os.Exit(1)
	}
}
