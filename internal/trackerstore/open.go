package trackerstore

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/utils/redis"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Open builds the store selected by cfg. The returned func releases it.
func Open(cfg *config.TrackerStoreEnvConfig, redisCfg *config.RedisEnvConfig) (Store, func(), error) {
	switch strings.ToLower(cfg.TrackerStoreBackend) {
	case BackendFile, "":
		log.Info().Str("path", cfg.TrackerStorePath).Msg("Using file tracker store")
		return NewFileStore(cfg.TrackerStorePath), func() {}, nil
	case BackendRedis:
		client, err := redis.NewRedis(redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info().Str("host", redisCfg.RedisHost).Str("key", cfg.TrackerStoreKey).Msg("Using redis tracker store")
		return NewRedisStore(client, cfg.TrackerStoreKey), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown tracker store backend %q", cfg.TrackerStoreBackend)
	}
}
