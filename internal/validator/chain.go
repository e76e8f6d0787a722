package validator

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/kami"
	chainutils "github.com/tensorplex-labs/fakenews/internal/utils/chain_utils"
)

func (v *Validator) syncMetagraph() {
	netuid := v.Config.Netuid
	log.Info().Msgf("syncing metagraph data for subnet: %d", netuid)

	newMetagraph, err := v.chain.GetMetagraph(netuid)
	if err != nil {
		log.Error().Err(err).Msg("failed to get metagraph")
		return
	}

	activeMiners := chainutils.AvailableMinerUIDs(&newMetagraph.Data, v.ValidatorHotkey, v.Config.Environment)
	log.Info().Msgf("Metagraph synced. Found %d active miners with uid: %v", len(activeMiners), activeMiners)
	if uid, ok := kami.UIDByHotkey(&newMetagraph.Data, v.ValidatorHotkey); ok {
		log.Debug().Int("uid", uid).Msg("validator registered")
	} else {
		log.Warn().Str("hotkey", v.ValidatorHotkey).Msg("validator hotkey is not registered on the subnet")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.MetagraphData.Metagraph = newMetagraph.Data
	v.MetagraphData.CurrentActiveMinerUids = activeMiners
	v.ScoresData = resizeScores(v.ScoresData, newMetagraph.Data.Hotkeys)
}

func (v *Validator) syncBlock() {
	newBlockResp, err := v.chain.GetLatestBlock()
	if err != nil {
		log.Error().Err(err).Msg("failed to get latest block")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	v.LatestBlock = int64(newBlockResp.Data.BlockNumber)
	log.Debug().Int64("block", v.LatestBlock).Msg("synced latest block")
}

// resizeScores aligns scores with the metagraph. Uids whose hotkey changed
// start again from zero.
func resizeScores(data ScoresData, hotkeys []string) ScoresData {
	scores := make([]float64, len(hotkeys))
	for uid, hotkey := range hotkeys {
		if uid < len(data.Scores) && uid < len(data.Hotkeys) && data.Hotkeys[uid] == hotkey {
			scores[uid] = data.Scores[uid]
			continue
		}
		if uid < len(data.Hotkeys) && data.Hotkeys[uid] != "" {
			log.Info().Int("uid", uid).Str("hotkey", hotkey).Msg("Hotkey replaced, resetting score")
		}
	}
	return ScoresData{
		Step:    data.Step,
		Scores:  scores,
		Hotkeys: slices.Clone(hotkeys),
	}
}

func (v *Validator) setWeights() {
	v.mu.Lock()
	scores := slices.Clone(v.ScoresData.Scores)
	step := v.ScoresData.Step
	versionKey := v.MetagraphData.Metagraph.WeightsVersion
	v.mu.Unlock()

	if len(scores) == 0 {
		log.Info().Msg("no scores yet, skipping weight setting")
		return
	}

	uids, weights, err := chainutils.ScoresToWeights(scores)
	if err != nil {
		log.Error().Err(err).Msg("failed to convert scores to weights")
		return
	}
	if len(uids) == 0 {
		log.Info().Int("step", step).Msg("all scores are zero, skipping weight setting")
		return
	}

	resp, err := v.chain.SetWeights(kami.SetWeightsParams{
		Netuid:     v.Config.Netuid,
		Dests:      uids,
		Weights:    weights,
		VersionKey: versionKey,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to set weights")
		return
	}
	log.Info().Str("extrinsic", resp.Data).Int("step", step).Msgf("set weights for %d uids", len(uids))
}
