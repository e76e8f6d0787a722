package scoring

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLongAlpha       = 0.5
	DefaultLongTermWindow  = 300
	DefaultShortTermWindow = 20

	maxLogLength = 3950
)

// RewardCalculator blends long and short window accuracy into one reward per
// miner, summed over every tracked task by reward weight.
type RewardCalculator struct {
	// LongAlpha weighs the long window; 1-LongAlpha weighs the short one.
	LongAlpha       float64
	LongTermWindow  int
	ShortTermWindow int
}

type RewardCalculatorOption func(*RewardCalculator)

func WithLongAlpha(alpha float64) RewardCalculatorOption {
	return func(c *RewardCalculator) {
		c.LongAlpha = alpha
	}
}

func WithLongTermWindow(window int) RewardCalculatorOption {
	return func(c *RewardCalculator) {
		c.LongTermWindow = window
	}
}

func WithShortTermWindow(window int) RewardCalculatorOption {
	return func(c *RewardCalculator) {
		c.ShortTermWindow = window
	}
}

func NewRewardCalculator(opts ...RewardCalculatorOption) *RewardCalculator {
	c := &RewardCalculator{
		LongAlpha:       DefaultLongAlpha,
		LongTermWindow:  DefaultLongTermWindow,
		ShortTermWindow: DefaultShortTermWindow,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetRewards scores one round. labels are the ground truth of the reviewed
// articles; responses, uids and identities are aligned by position. The
// tracker of currentTask records this round, every tracker is checked for a
// hotkey change, and each task contributes its weighted blended accuracy.
// Malformed miner answers are penalised, never returned as errors; errors
// mean the caller passed inconsistent input.
func (c *RewardCalculator) GetRewards(
	labels []float64,
	responses [][]RawProbability,
	uids []int64,
	identities []Identity,
	registry *TrackerRegistry,
	currentTask Task,
) ([]float64, RewardMetadata, error) {
	if err := validateRound(labels, responses, uids, identities, registry, currentTask); err != nil {
		return nil, RewardMetadata{}, err
	}

	rewards := make([]float64, 0, len(uids))
	details := make([]MinerRewardDetails, 0, len(uids))

	for i, uid := range uids {
		hotkey := identities[i].GetHotkey()
		probs := responses[i]
		normalized := NormalizeMinerProbs(probs, labels)

		minerDetails := make(MinerRewardDetails, registry.Len())
		finalReward := 0.0

		for _, entry := range registry.entries {
			tracker := entry.Tracker

			if entry.Task.Name() == currentTask.Name() {
				for j, p := range normalized {
					tracker.Update(uid, p, labels[j], hotkey)
				}
			}

			if tracked, ok := tracker.Hotkey(uid); !ok || tracked != hotkey {
				log.Warn().Int64("uid", uid).Str("task", entry.Task.Name()).Msg("Miner hotkey changed, resetting performance metrics")
				tracker.ResetMinerHistory(uid, hotkey)
			}

			reward, metricsLong, metricsShort, err := c.taskReward(tracker, uid)
			if err != nil {
				log.Error().Err(err).Int64("uid", uid).Str("task", entry.Task.Name()).
					Msgf("Couldn't calculate reward for miner, probabilities: %v, labels: %v", probs, labels)
			}

			weightedReward := entry.Task.RewardWeight() * reward
			minerDetails[entry.Task.Name()] = TaskRewardDetail{
				MinerUID:                uid,
				Probabilities:           probs,
				NormalizedProbabilities: normalized,
				MetricsLong:             metricsLong,
				MetricsShort:            metricsShort,
				Reward:                  reward,
				RewardWeight:            entry.Task.RewardWeight(),
				WeightedReward:          weightedReward,
			}
			finalReward += weightedReward
		}

		rewards = append(rewards, finalReward)
		details = append(details, minerDetails)
	}

	metadata := RewardMetadata{
		ByMinerDetails:  details,
		LongAlpha:       c.LongAlpha,
		LongTermWindow:  c.LongTermWindow,
		ShortTermWindow: c.ShortTermWindow,
	}
	c.logResult(currentTask, details)

	return rewards, metadata, nil
}

func (c *RewardCalculator) taskReward(tracker *PerformanceTracker, uid int64) (float64, Metrics, Metrics, error) {
	metricsLong := tracker.GetMetrics(uid, c.LongTermWindow)
	metricsShort := tracker.GetMetrics(uid, c.ShortTermWindow)

	longAccuracy, ok := metricsLong[MetricAccuracy]
	if !ok {
		return 0, nil, nil, fmt.Errorf("long window: %w", ErrMissingMetric)
	}
	shortAccuracy, ok := metricsShort[MetricAccuracy]
	if !ok {
		return 0, nil, nil, fmt.Errorf("short window: %w", ErrMissingMetric)
	}

	reward := c.LongAlpha*longAccuracy + (1-c.LongAlpha)*shortAccuracy
	return reward, metricsLong, metricsShort, nil
}

func validateRound(
	labels []float64,
	responses [][]RawProbability,
	uids []int64,
	identities []Identity,
	registry *TrackerRegistry,
	currentTask Task,
) error {
	if len(labels) == 0 {
		return ErrNoLabels
	}
	if len(uids) != len(identities) || len(uids) != len(responses) {
		return fmt.Errorf("%w: %d uids, %d identities, %d responses", ErrLengthMismatch, len(uids), len(identities), len(responses))
	}
	if registry == nil {
		return ErrNilRegistry
	}
	if currentTask == nil || !registry.Contains(currentTask) {
		return ErrUnknownTask
	}
	for i, identity := range identities {
		if identity == nil {
			return fmt.Errorf("%w: identity for uid %d is nil", ErrLengthMismatch, uids[i])
		}
	}
	for _, entry := range registry.entries {
		if entry.Tracker == nil {
			return fmt.Errorf("%w: no tracker for task %s", ErrNilRegistry, entry.Task.Name())
		}
	}
	return nil
}

type compactReward struct {
	UID            int64            `json:"uid"`
	Probabilities  []RawProbability `json:"probs"`
	MetricsLong    Metrics          `json:"long"`
	MetricsShort   Metrics          `json:"short"`
	WeightedReward float64          `json:"wght_rwd"`
}

// logResult writes the round breakdown at debug level, split into chunks so
// log collectors do not truncate it.
func (c *RewardCalculator) logResult(currentTask Task, details []MinerRewardDetails) {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}

	byTask := make(map[string][]compactReward)
	for _, minerDetails := range details {
		for taskName, d := range minerDetails {
			byTask[taskName] = append(byTask[taskName], compactReward{
				UID:            d.MinerUID,
				Probabilities:  d.Probabilities,
				MetricsLong:    d.MetricsLong,
				MetricsShort:   d.MetricsShort,
				WeightedReward: d.WeightedReward,
			})
		}
	}

	encoded, err := sonic.ConfigStd.MarshalToString(byTask)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode reward metadata")
		return
	}

	message := fmt.Sprintf(
		"Calculating rewards for task %s. Long alpha: %v, long term window: %d, short term window: %d, Miner calculating metadata: %s",
		currentTask.Name(), c.LongAlpha, c.LongTermWindow, c.ShortTermWindow, encoded,
	)
	for _, chunk := range chunkString(message, maxLogLength) {
		log.Debug().Msg(chunk)
	}
}

func chunkString(s string, size int) []string {
	if len(s) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, len(s)/size+1)
	for start := 0; start < len(s); start += size {
		end := min(start+size, len(s))
		chunks = append(chunks, s[start:end])
	}
	return chunks
}
