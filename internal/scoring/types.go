package scoring

const (
	MetricAccuracy = "accuracy"

	// WindowAll asks GetMetrics for the whole stored history.
	WindowAll = 0

	// InvalidPrediction marks a miner answer that could not be used.
	InvalidPrediction = -1.0

	DefaultStoreLastNPredictions = 500
)

// Metrics maps metric names to values, e.g. {"accuracy": 0.85}.
type Metrics map[string]float64

// Task is the part of a validator task the reward engine needs. Tasks are
// identified by name.
type Task interface {
	Name() string
	RewardWeight() float64
}

// Identity is anything carrying a miner hotkey, usually an axon from the metagraph.
type Identity interface {
	GetHotkey() string
}

// Hotkey is the simplest Identity.
type Hotkey string

func (h Hotkey) GetHotkey() string { return string(h) }

// TaskRewardDetail is one (miner, task) row of the reward breakdown.
type TaskRewardDetail struct {
	MinerUID                int64            `json:"miner_uid"`
	Probabilities           []RawProbability `json:"probabilities"`
	NormalizedProbabilities []float64        `json:"normalized_probabilities"`
	MetricsLong             Metrics          `json:"metrics_long"`
	MetricsShort            Metrics          `json:"metrics_short"`
	Reward                  float64          `json:"reward"`
	RewardWeight            float64          `json:"reward_weight"`
	WeightedReward          float64          `json:"weighted_reward"`
}

// MinerRewardDetails holds the rows of one miner keyed by task name.
type MinerRewardDetails map[string]TaskRewardDetail

type RewardMetadata struct {
	ByMinerDetails  []MinerRewardDetails `json:"by_miner_details"`
	LongAlpha       float64              `json:"long_alpha"`
	LongTermWindow  int                  `json:"long_term_window"`
	ShortTermWindow int                  `json:"short_term_window"`
}
