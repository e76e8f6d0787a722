package validator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/internal/task"
	"github.com/tensorplex-labs/fakenews/internal/trackerstore"
)

// Params bundles what NewValidator needs.
type Params struct {
	Config  *config.AppConfig
	Chain   Chain
	Querier Querier
	Store   trackerstore.Store
	Tasks   []task.Task
	Hotkey  string
	Rand    *rand.Rand
}

// Validator coordinates scoring rounds and on-chain state for a subnet.
type Validator struct {
	chain      Chain
	querier    Querier
	store      trackerstore.Store
	tasks      []task.Task
	registry   *scoring.TrackerRegistry
	calculator *scoring.RewardCalculator
	rng        *rand.Rand

	// Chain global state
	LatestBlock     int64
	MetagraphData   MetagraphData
	ValidatorHotkey string
	ScoresData      ScoresData

	IntervalConfig *config.IntervalConfig
	Config         *config.AppConfig

	Ctx    context.Context
	Cancel context.CancelFunc
	Wg     sync.WaitGroup

	mu           sync.Mutex  // protects chain state and scores
	roundRunning atomic.Bool // set while a forward round is in flight
}

// NewValidator restores trackers and scores from storage and returns a
// validator ready to Start.
func NewValidator(ctx context.Context, p Params) (*Validator, error) {
	if p.Config == nil || p.Chain == nil || p.Querier == nil || p.Store == nil {
		return nil, fmt.Errorf("validator dependencies cannot be nil")
	}
	if len(p.Tasks) == 0 {
		return nil, task.ErrNoTasks
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	rewardCfg := p.Config.RewardEnvConfig
	registry := scoring.NewTrackerRegistry()
	for _, t := range p.Tasks {
		registry.Register(t, scoring.NewPerformanceTracker(rewardCfg.StoreLastNPredictions))
	}
	if err := trackerstore.LoadRegistry(ctx, p.Store, registry, rewardCfg.StoreLastNPredictions); err != nil {
		return nil, fmt.Errorf("load miner history: %w", err)
	}

	scores, err := loadScores(p.Config.ScoresPath)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Loaded latest scores from file: step %d, %d uids", scores.Step, len(scores.Scores))

	runCtx, cancel := context.WithCancel(ctx)

	log.Info().Msgf("Validator hotkey %s loaded!", p.Hotkey)

	return &Validator{
		chain:   p.Chain,
		querier: p.Querier,
		store:   p.Store,
		tasks:   p.Tasks,

		registry: registry,
		calculator: scoring.NewRewardCalculator(
			scoring.WithLongAlpha(rewardCfg.LongAlpha),
			scoring.WithLongTermWindow(rewardCfg.LongTermWindow),
			scoring.WithShortTermWindow(rewardCfg.ShortTermWindow),
		),
		rng: p.Rand,

		ValidatorHotkey: p.Hotkey,
		ScoresData:      scores,

		IntervalConfig: config.NewIntervalConfig(p.Config.Environment),
		Config:         p.Config,

		Ctx:    runCtx,
		Cancel: cancel,
	}, nil
}

// runTicker runs fn periodically until ctx is canceled. fn runs in its own
// goroutine so the loop exits promptly on cancellation.
func (v *Validator) runTicker(ctx context.Context, d time.Duration, fn func()) {
	defer v.Wg.Done()
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			go fn()
		}
	}
}

// Start syncs the metagraph once and kicks off the periodic routines.
func (v *Validator) Start() {
	v.syncMetagraph()
	v.syncBlock()

	v.Wg.Add(1)
	go v.runTicker(v.Ctx, v.IntervalConfig.ForwardInterval, func() {
		v.forward(v.Ctx)
	})

	v.Wg.Add(1)
	go v.runTicker(v.Ctx, v.IntervalConfig.MetagraphInterval, func() {
		v.syncMetagraph()
	})

	v.Wg.Add(1)
	go v.runTicker(v.Ctx, v.IntervalConfig.BlockInterval, func() {
		v.syncBlock()
	})

	v.Wg.Add(1)
	go v.runTicker(v.Ctx, v.IntervalConfig.WeightSettingInterval, func() {
		v.setWeights()
	})
}

// Stop cancels background routines and persists state.
func (v *Validator) Stop() {
	if v.Cancel != nil {
		v.Cancel()
	}
	v.Wg.Wait()

	// a round may still be finishing; wait for it before the final save
	for v.roundRunning.Load() {
		time.Sleep(50 * time.Millisecond)
	}
	v.persist(context.Background())
}
