// Command scoring prints the stored accuracy and reward of every miner.
package main

import (
	"context"
	"errors"
	"flag"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/internal/trackerstore"
	"github.com/tensorplex-labs/fakenews/internal/utils/logger"
)

func main() {
	uid := flag.Int64("uid", -1, "only print this uid")
	logger.Init()

	rewardCfg, err := config.LoadRewardEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load reward configuration")
	}
	storeCfg, err := config.LoadTrackerStoreEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load tracker store configuration")
	}
	redisCfg, err := config.LoadRedisEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load redis configuration")
	}

	store, closeStore, err := trackerstore.Open(storeCfg, redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open tracker store")
	}
	defer closeStore()

	snapshot, err := store.Load(context.Background())
	if errors.Is(err, trackerstore.ErrNotFound) {
		log.Info().Str("backend", storeCfg.TrackerStoreBackend).Msg("no miner history stored yet")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load miner history")
	}

	for taskName, trackerSnapshot := range snapshot {
		tracker := scoring.RestorePerformanceTracker(trackerSnapshot)
		log.Info().Str("task", taskName).Int("capacity", tracker.Capacity()).Msgf("--- %s ---", taskName)

		uids := tracker.UIDs()
		slices.Sort(uids)
		for _, u := range uids {
			if *uid >= 0 && u != *uid {
				continue
			}
			long := tracker.GetMetrics(u, rewardCfg.LongTermWindow, scoring.MetricAccuracy)
			short := tracker.GetMetrics(u, rewardCfg.ShortTermWindow, scoring.MetricAccuracy)
			reward := rewardCfg.LongAlpha*long[scoring.MetricAccuracy] + (1-rewardCfg.LongAlpha)*short[scoring.MetricAccuracy]
			hotkey, _ := tracker.Hotkey(u)

			log.Info().
				Int64("uid", u).
				Str("hotkey", hotkey).
				Int("history", tracker.HistoryLen(u)).
				Float64("accuracy_long", long[scoring.MetricAccuracy]).
				Float64("accuracy_short", short[scoring.MetricAccuracy]).
				Float64("reward", reward).
				Msg("miner")
		}
	}
}
