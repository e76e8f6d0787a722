// Package trackerstore persists the per-task miner history so a restarted
// validator keeps scoring miners against their track record.
package trackerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/scoring"
)

var ErrNotFound = errors.New("no stored miner history")

// RegistrySnapshot maps task names to tracker snapshots.
type RegistrySnapshot map[string]scoring.TrackerSnapshot

type Store interface {
	Save(ctx context.Context, snapshot RegistrySnapshot) error
	// Load returns ErrNotFound when nothing has been saved yet.
	Load(ctx context.Context) (RegistrySnapshot, error)
}

func SnapshotRegistry(registry *scoring.TrackerRegistry) RegistrySnapshot {
	snapshot := make(RegistrySnapshot, registry.Len())
	for _, entry := range registry.Entries() {
		snapshot[entry.Task.Name()] = entry.Tracker.Snapshot()
	}
	return snapshot
}

func SaveRegistry(ctx context.Context, store Store, registry *scoring.TrackerRegistry) error {
	if err := store.Save(ctx, SnapshotRegistry(registry)); err != nil {
		return fmt.Errorf("save miner history: %w", err)
	}
	return nil
}

// LoadRegistry replaces the trackers of registered tasks with their stored
// state and trims them to capacity. Stored tasks that are no longer
// registered are skipped. A missing store leaves the registry untouched.
func LoadRegistry(ctx context.Context, store Store, registry *scoring.TrackerRegistry, capacity int) error {
	snapshot, err := store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		log.Info().Msg("No stored miner history found, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load miner history: %w", err)
	}

	for taskName, trackerSnapshot := range snapshot {
		entry, ok := registry.Entry(taskName)
		if !ok {
			log.Warn().Str("task", taskName).Msg("Skipping stored history for unknown task")
			continue
		}

		tracker := scoring.RestorePerformanceTracker(trackerSnapshot)
		tracker.ResizeHistory(capacity)
		registry.Register(entry.Task, tracker)
		log.Info().Str("task", taskName).Int("miners", len(trackerSnapshot.MinerHotkeys)).Msg("Loaded miner history")
	}
	return nil
}
