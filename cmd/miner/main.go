package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/kami"
	"github.com/tensorplex-labs/fakenews/internal/llm"
	"github.com/tensorplex-labs/fakenews/internal/miner"
	"github.com/tensorplex-labs/fakenews/internal/utils/logger"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

func main() {
	logger.Init()
	log.Info().Msg("Starting miner...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	k, err := kami.NewKami(&cfg.KamiEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing Kami")
	}

	llmClient, err := llm.NewClient(&cfg.OpenAIEnvConfig, cfg.ClientTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init llm client")
	}

	m, err := miner.NewMiner(cfg, k, miner.LLMPredictor{Client: llmClient}, signature.NewVerifier())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init miner")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Miner is running. Press Ctrl+C to shutdown...")
	if err := m.Run(ctx); err != nil {
		log.Error().Err(err).Msg("miner stopped with error")
		return
	}
	log.Info().Msg("Miner shutdown complete")
}
