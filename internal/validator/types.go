// Package validator runs validator rounds: metagraph sync, miner queries,
// scoring and weight setting.
package validator

import (
	"context"

	"github.com/tensorplex-labs/fakenews/internal/kami"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/internal/synapse"
	"github.com/tensorplex-labs/fakenews/internal/task"
)

// Chain is the part of the Kami gateway the validator uses.
type Chain interface {
	GetMetagraph(netuid int) (kami.SubnetMetagraphResponse, error)
	GetLatestBlock() (kami.LatestBlockResponse, error)
	SetWeights(params kami.SetWeightsParams) (kami.ExtrinsicHashResponse, error)
}

// Querier fans a synapse out to miners.
type Querier interface {
	QueryAll(ctx context.Context, axons []synapse.Axon, req synapse.ArticleSynapse) []synapse.ArticleSynapse
}

// MetagraphData holds the current subnet metagraph and derived runtime data.
type MetagraphData struct {
	Metagraph              kami.SubnetMetagraph
	CurrentActiveMinerUids []int64
}

// ScoresData is the persisted moving average score of every uid. Hotkeys
// records who owned each uid when it was scored.
type ScoresData struct {
	Step    int       `json:"step"`
	Scores  []float64 `json:"scores"`
	Hotkeys []string  `json:"hotkeys"`
}

// RoundAnalytics is logged after every scored round.
type RoundAnalytics struct {
	Step            int                        `json:"step"`
	TaskName        string                     `json:"task_name"`
	MinerUIDs       []int64                    `json:"miner_uids"`
	Labels          []float64                  `json:"labels"`
	Responses       [][]scoring.RawProbability `json:"responses"`
	Rewards         []float64                  `json:"rewards"`
	RewardsMetadata scoring.RewardMetadata     `json:"rewards_calculating_metadata"`
	Scores          []float64                  `json:"scores"`
	TaskMetadata    task.Metadata              `json:"task_metadata"`
	QuerySeconds    float64                    `json:"query_seconds"`
}
