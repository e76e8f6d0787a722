package validator

import (
	"context"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/kami"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
	"github.com/tensorplex-labs/fakenews/internal/task"
)

// forward runs one round: sample miners, prepare a task, query, score and
// persist. Overlapping ticks are skipped.
func (v *Validator) forward(ctx context.Context) {
	if !v.roundRunning.CompareAndSwap(false, true) {
		log.Debug().Msg("previous round still running, skipping")
		return
	}
	defer v.roundRunning.Store(false)

	v.mu.Lock()
	metagraph := v.MetagraphData.Metagraph
	active := slices.Clone(v.MetagraphData.CurrentActiveMinerUids)
	v.mu.Unlock()

	if metagraph.Hotkeys == nil {
		log.Info().Msg("metagraph hotkeys is nil, skipping round")
		return
	}

	uids := v.sampleUIDs(active, v.Config.SampleSize)
	if len(uids) == 0 {
		log.Info().Msg("No miners available")
		return
	}
	log.Info().Msgf("Miners: %v", uids)

	currentTask, err := task.Select(v.rng, v.tasks)
	if err != nil {
		log.Error().Err(err).Msg("failed to select task")
		return
	}
	log.Info().Msgf("Selected task: %s", currentTask.Name())

	req, labels, err := currentTask.PrepareSynapse(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prepare synapse")
		return
	}

	axons := axonsFor(&metagraph, uids)
	queryCtx, cancel := context.WithTimeout(ctx, currentTask.Timeout())
	start := time.Now()
	responses := v.querier.QueryAll(queryCtx, axons, req)
	cancel()
	elapsed := time.Since(start)
	log.Info().Msgf("Received responses in %.2f seconds", elapsed.Seconds())

	probabilities := make([][]scoring.RawProbability, len(responses))
	identities := make([]scoring.Identity, len(axons))
	for i := range responses {
		probabilities[i] = responses[i].FakeProbabilities
		identities[i] = axons[i]
	}

	rewards, rewardsMetadata, err := v.calculator.GetRewards(labels, probabilities, uids, identities, v.registry, currentTask)
	if err != nil {
		log.Error().Err(err).Msg("failed to calculate rewards")
		return
	}
	log.Info().Msgf("Scored responses: %v", rewards)

	scores := v.updateScores(rewards, uids)
	v.persist(ctx)

	v.logAnalytics(RoundAnalytics{
		Step:            scores.Step,
		TaskName:        currentTask.Name(),
		MinerUIDs:       uids,
		Labels:          labels,
		Responses:       probabilities,
		Rewards:         rewards,
		RewardsMetadata: rewardsMetadata,
		Scores:          scores.Scores,
		TaskMetadata:    currentTask.Metadata(),
		QuerySeconds:    elapsed.Seconds(),
	})

	if err := currentTask.SaveDataset(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to save dataset")
	}
}

// sampleUIDs draws up to k distinct uids.
func (v *Validator) sampleUIDs(available []int64, k int) []int64 {
	if k <= 0 || k >= len(available) {
		return available
	}
	perm := v.rng.Perm(len(available))
	sampled := make([]int64, k)
	for i := range sampled {
		sampled[i] = available[perm[i]]
	}
	return sampled
}

func axonsFor(metagraph *kami.SubnetMetagraph, uids []int64) []synapse.Axon {
	axons := make([]synapse.Axon, len(uids))
	for i, uid := range uids {
		axons[i] = synapse.Axon{UID: uid}
		if int(uid) < len(metagraph.Hotkeys) {
			axons[i].Hotkey = metagraph.Hotkeys[uid]
		}
		if int(uid) < len(metagraph.Axons) {
			axons[i].IP = metagraph.Axons[uid].IP
			axons[i].Port = metagraph.Axons[uid].Port
		}
	}
	return axons
}

func (v *Validator) logAnalytics(analytics RoundAnalytics) {
	analyticsJSON, err := sonic.Marshal(analytics)
	if err != nil {
		log.Warn().Err(err).Str("task", analytics.TaskName).Msg("failed to marshal round analytics")
		return
	}
	log.Debug().RawJSON("analytics", analyticsJSON).Msg("Round Analytics")
}
