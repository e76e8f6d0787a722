package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.RewardEnvConfig.Validate(); err != nil {
		return nil, err
	}
	for _, path := range []*string{&cfg.BittensorDir, &cfg.TrackerStorePath, &cfg.ScoresPath} {
		expanded, err := ExpandHome(*path)
		if err != nil {
			return nil, err
		}
		*path = expanded
	}
	return cfg, nil
}

func load[T any]() (*T, error) {
	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadTrackerStoreEnv() (*TrackerStoreEnvConfig, error) {
	cfg, err := load[TrackerStoreEnvConfig]()
	if err != nil {
		return nil, err
	}
	if cfg.TrackerStorePath, err = ExpandHome(cfg.TrackerStorePath); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadRedisEnv() (*RedisEnvConfig, error) { return load[RedisEnvConfig]() }

func LoadWalletEnv() (*WalletEnvConfig, error) { return load[WalletEnvConfig]() }

func LoadRewardEnv() (*RewardEnvConfig, error) {
	cfg, err := load[RewardEnvConfig]()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c RewardEnvConfig) Validate() error {
	if c.LongAlpha < 0 || c.LongAlpha > 1 {
		return fmt.Errorf("REWARD_LONG_ALPHA must be within [0, 1], got %v", c.LongAlpha)
	}
	if c.LongTermWindow <= 0 || c.ShortTermWindow <= 0 {
		return fmt.Errorf("reward windows must be positive, got long=%d short=%d", c.LongTermWindow, c.ShortTermWindow)
	}
	if c.StoreLastNPredictions <= 0 {
		return fmt.Errorf("STORE_LAST_N_PREDICTIONS must be positive, got %d", c.StoreLastNPredictions)
	}
	if c.MovingAverageAlpha <= 0 || c.MovingAverageAlpha > 1 {
		return fmt.Errorf("MOVING_AVERAGE_ALPHA must be within (0, 1], got %v", c.MovingAverageAlpha)
	}
	return nil
}

// ExpandHome resolves a leading ~ in BITTENSOR_DIR style paths.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
