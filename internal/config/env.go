// Package config defines environment configuration structs and loaders.
package config

import (
	"strings"
	"time"
)

type AppConfig struct {
	ChainEnvConfig
	WalletEnvConfig
	KamiEnvConfig
	ServerEnvConfig
	ClientEnvConfig
	RedisEnvConfig
	NewsAPIEnvConfig
	OpenAIEnvConfig
	RewardEnvConfig
	TrackerStoreEnvConfig
	ValidatorEnvConfig
}

// ChainEnvConfig holds chain-specific environment values.
type ChainEnvConfig struct {
	Netuid int `env:"NETUID" envDefault:"66"`
}

// WalletEnvConfig holds wallet key configuration.
type WalletEnvConfig struct {
	WalletHotkey  string `env:"WALLET_HOTKEY"`
	WalletColdkey string `env:"WALLET_COLDKEY"`
	BittensorDir  string `env:"BITTENSOR_DIR" envDefault:"~/.bittensor"`
}

// KamiEnvConfig contains Kami service target.
type KamiEnvConfig struct {
	SubtensorNetwork string `env:"SUBTENSOR_NETWORK" envDefault:"test"`
	KamiHost         string `env:"KAMI_HOST" envDefault:"127.0.0.1"`
	KamiPort         string `env:"KAMI_PORT" envDefault:"3000"`
}

// ServerEnvConfig configures the miner axon server.
type ServerEnvConfig struct {
	Address       string `env:"AXON_IP"` // empty: discover the external IP
	Port          int    `env:"AXON_PORT" envDefault:"8080"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT" envDefault:"1048576"`
}

// ClientEnvConfig configures outbound clients.
type ClientEnvConfig struct {
	ClientTimeout time.Duration `env:"CLIENT_TIMEOUT" envDefault:"30s"`
	ClientRetries int           `env:"CLIENT_RETRIES" envDefault:"3"`
}

// RedisEnvConfig configures Redis connection.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisUsername string `env:"REDIS_USERNAME"`
}

// NewsAPIEnvConfig configures the article source.
type NewsAPIEnvConfig struct {
	NewsAPIURL         string        `env:"NEWS_API_URL" envDefault:"http://84.32.185.173:8000"`
	NewsAPISaveTimeout time.Duration `env:"NEWS_API_SAVE_TIMEOUT" envDefault:"3s"`
}

// OpenAIEnvConfig configures the chat completions API.
type OpenAIEnvConfig struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

// RewardEnvConfig tunes reward blending and history size.
type RewardEnvConfig struct {
	LongAlpha             float64 `env:"REWARD_LONG_ALPHA" envDefault:"0.5"`
	LongTermWindow        int     `env:"REWARD_LONG_TERM_WINDOW" envDefault:"300"`
	ShortTermWindow       int     `env:"REWARD_SHORT_TERM_WINDOW" envDefault:"20"`
	StoreLastNPredictions int     `env:"STORE_LAST_N_PREDICTIONS" envDefault:"500"`
	MovingAverageAlpha    float64 `env:"MOVING_AVERAGE_ALPHA" envDefault:"0.1"`
	SampleSize            int     `env:"SAMPLE_SIZE" envDefault:"50"`
}

// TrackerStoreEnvConfig selects where miner history is persisted.
type TrackerStoreEnvConfig struct {
	TrackerStoreBackend string `env:"TRACKER_STORE_BACKEND" envDefault:"file"`
	TrackerStorePath    string `env:"TRACKER_STORE_PATH" envDefault:"miner_history.json.zst"`
	TrackerStoreKey     string `env:"TRACKER_STORE_KEY" envDefault:"fakenews:miner_history"`
	ScoresPath          string `env:"SCORES_PATH" envDefault:"scores.json"`
}

// ValidatorEnvConfig configures validator runtime.
type ValidatorEnvConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
}

type IntervalConfig struct {
	MetagraphInterval     time.Duration
	ForwardInterval       time.Duration
	BlockInterval         time.Duration
	WeightSettingInterval time.Duration
}

var (
	DevIntervalConfig = &IntervalConfig{
		MetagraphInterval:     5 * time.Second,
		ForwardInterval:       10 * time.Second,
		BlockInterval:         2 * time.Second,
		WeightSettingInterval: 1 * time.Minute,
	}
	TestIntervalConfig = &IntervalConfig{
		MetagraphInterval:     30 * time.Second,
		ForwardInterval:       1 * time.Minute,
		BlockInterval:         12 * time.Second,
		WeightSettingInterval: 20 * time.Minute,
	}

	ProdIntervalConfig = &IntervalConfig{
		MetagraphInterval:     30 * time.Second,
		ForwardInterval:       1 * time.Minute,
		BlockInterval:         12 * time.Second,
		WeightSettingInterval: 20 * time.Minute,
	}
)

func NewIntervalConfig(environment string) *IntervalConfig {
	switch strings.ToLower(environment) {
	case "dev":
		return DevIntervalConfig
	case "test":
		return TestIntervalConfig
	case "prod":
		return ProdIntervalConfig
	}

	return DevIntervalConfig
}
