package validator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/trackerstore"
)

// updateScores folds round rewards into the moving average. Uids that were not
// queried decay towards zero. It returns a copy of the new scores.
func (v *Validator) updateScores(rewards []float64, uids []int64) ScoresData {
	alpha := v.Config.MovingAverageAlpha

	v.mu.Lock()
	defer v.mu.Unlock()

	scores := v.ScoresData.Scores
	for _, uid := range uids {
		if int(uid) >= len(scores) {
			scores = append(scores, make([]float64, int(uid)+1-len(scores))...)
		}
	}

	scattered := make([]float64, len(scores))
	for i, uid := range uids {
		reward := rewards[i]
		if math.IsNaN(reward) || math.IsInf(reward, 0) {
			log.Warn().Int64("uid", uid).Msg("Reward is not finite, using 0")
			reward = 0
		}
		scattered[uid] = reward
	}
	for i := range scores {
		scores[i] = alpha*scattered[i] + (1-alpha)*scores[i]
	}

	v.ScoresData.Scores = scores
	v.ScoresData.Step++
	log.Debug().Int("step", v.ScoresData.Step).Msgf("Updated moving avg scores: %v", scores)

	return ScoresData{
		Step:    v.ScoresData.Step,
		Scores:  slices.Clone(scores),
		Hotkeys: slices.Clone(v.ScoresData.Hotkeys),
	}
}

// persist writes miner history and scores. Failures are logged; the next
// round retries.
func (v *Validator) persist(ctx context.Context) {
	if err := trackerstore.SaveRegistry(ctx, v.store, v.registry); err != nil {
		log.Error().Err(err).Msg("failed to save miner history")
	}

	v.mu.Lock()
	data := ScoresData{
		Step:    v.ScoresData.Step,
		Scores:  slices.Clone(v.ScoresData.Scores),
		Hotkeys: slices.Clone(v.ScoresData.Hotkeys),
	}
	v.mu.Unlock()

	if err := saveScores(v.Config.ScoresPath, data); err != nil {
		log.Error().Err(err).Msg("failed to save scores")
	}
}

// loadScores reads the scores file. A missing file yields empty scores.
func loadScores(path string) (ScoresData, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("scores file not found, starting from zero")
		return ScoresData{}, nil
	}
	if err != nil {
		return ScoresData{}, fmt.Errorf("read scores file: %w", err)
	}

	var scores ScoresData
	if err := sonic.Unmarshal(data, &scores); err != nil {
		return ScoresData{}, fmt.Errorf("unmarshal scores file: %w", err)
	}
	return scores, nil
}

func saveScores(path string, scores ScoresData) error {
	data, err := sonic.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create scores directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp scores file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write scores: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close scores file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
