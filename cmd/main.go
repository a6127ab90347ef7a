package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"speech-sentiment-service/internal/app"
	"speech-sentiment-service/internal/config"
)

func main() {
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("httpPort", cfg.Service.HTTPPort).
		Str("metricsAddr", cfg.Observability.MetricsAddr).
		Str("sttProvider", cfg.STT.Provider).
		Msg("Starting speech sentiment service")

	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Service stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("Server stopped")
}
