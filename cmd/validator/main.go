package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/kami"
	"github.com/tensorplex-labs/fakenews/internal/llm"
	"github.com/tensorplex-labs/fakenews/internal/newsapi"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
	"github.com/tensorplex-labs/fakenews/internal/task"
	"github.com/tensorplex-labs/fakenews/internal/trackerstore"
	"github.com/tensorplex-labs/fakenews/internal/utils/logger"
	"github.com/tensorplex-labs/fakenews/internal/validator"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

func main() {
	logger.Init()
	log.Info().Msg("Starting validator...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	keypair, err := signature.LoadKeypairFromHotkey(cfg.BittensorDir, cfg.WalletColdkey, cfg.WalletHotkey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load wallet hotkey")
	}
	provider, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create signature provider")
	}

	k, err := kami.NewKami(&cfg.KamiEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init kami client")
	}
	if kamiHotkey, err := kami.GetHotkey(k); err != nil {
		log.Warn().Err(err).Msg("failed to read kami keyring, weights may be set by another hotkey")
	} else if kamiHotkey != provider.Hotkey() {
		log.Warn().Str("kami", kamiHotkey).Str("wallet", provider.Hotkey()).Msg("kami keyring and wallet hotkey differ")
	}

	store, closeStore, err := trackerstore.Open(&cfg.TrackerStoreEnvConfig, &cfg.RedisEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open tracker store")
	}
	defer closeStore()

	news, err := newsapi.NewClient(&cfg.NewsAPIEnvConfig, provider, cfg.ClientRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init news api client")
	}
	llmClient, err := llm.NewClient(&cfg.OpenAIEnvConfig, cfg.ClientTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init llm client")
	}

	rewriter := task.LLMRewriter{Client: llmClient}
	tasks := []task.Task{
		task.NewFakenewsDetectionWithOriginal(news, rewriter, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
		task.NewFakenewsDetectionNoOriginal(news, rewriter, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
	}

	querier, err := synapse.NewClient(&cfg.ClientEnvConfig, provider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init synapse client")
	}
	defer querier.Close()

	v, err := validator.NewValidator(context.Background(), validator.Params{
		Config:  cfg,
		Chain:   k,
		Querier: querier,
		Store:   store,
		Tasks:   tasks,
		Hotkey:  provider.Hotkey(),
		Rand:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init validator")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	v.Start()

	<-sigChan
	log.Info().Msg("shutdown signal received, stopping validator")
	v.Stop()
	log.Info().Msg("validator stopped")
}
