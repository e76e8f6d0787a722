package trackerstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
)

type namedTask string

func (n namedTask) Name() string          { return string(n) }
func (n namedTask) RewardWeight() float64 { return 0.5 }

type memoryRedis struct {
	data map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string]string)}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memoryRedis) GetMulti(_ context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = m.data[k]
	}
	return out, nil
}

func (m *memoryRedis) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryRedis) SetMulti(_ context.Context, kv map[string]string) error {
	for k, v := range kv {
		m.data[k] = v
	}
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func populatedRegistry() *scoring.TrackerRegistry {
	registry := scoring.NewTrackerRegistry()
	withOriginal := scoring.NewPerformanceTracker(scoring.DefaultStoreLastNPredictions)
	noOriginal := scoring.NewPerformanceTracker(scoring.DefaultStoreLastNPredictions)
	for i := range 40 {
		withOriginal.Update(1, 0.8, float64(i%2), "hk1")
		withOriginal.Update(2, scoring.InvalidPrediction, 1, "hk2")
		noOriginal.Update(1, 0.3, 0, "hk1")
	}
	registry.Register(namedTask("with_original"), withOriginal)
	registry.Register(namedTask("no_original"), noOriginal)
	return registry
}

func freshRegistry() *scoring.TrackerRegistry {
	registry := scoring.NewTrackerRegistry()
	registry.Register(namedTask("with_original"), scoring.NewPerformanceTracker(scoring.DefaultStoreLastNPredictions))
	registry.Register(namedTask("no_original"), scoring.NewPerformanceTracker(scoring.DefaultStoreLastNPredictions))
	return registry
}

func assertSameMetrics(t *testing.T, want, got *scoring.TrackerRegistry) {
	t.Helper()
	for _, entry := range want.Entries() {
		restored, ok := got.Tracker(entry.Task.Name())
		require.True(t, ok)
		assert.Equal(t, entry.Tracker.Snapshot(), restored.Snapshot())
		for _, uid := range []int64{1, 2, 3} {
			for _, window := range []int{scoring.WindowAll, 20, 300} {
				assert.Equal(t, entry.Tracker.GetMetrics(uid, window), restored.GetMetrics(uid, window))
			}
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "miner_history.json.zst"))
	original := populatedRegistry()

	require.NoError(t, SaveRegistry(ctx, store, original))

	restored := freshRegistry()
	require.NoError(t, LoadRegistry(ctx, store, restored, scoring.DefaultStoreLastNPredictions))
	assertSameMetrics(t, original, restored)
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.zst"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	registry := freshRegistry()
	require.NoError(t, LoadRegistry(context.Background(), store, registry, 500))
	assert.Equal(t, 2, registry.Len())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.zst")
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newMemoryRedis()
	store := NewRedisStore(client, "fakenews:test")
	original := populatedRegistry()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SaveRegistry(ctx, store, original))
	assert.Contains(t, client.data, "fakenews:test:task:with_original")

	restored := freshRegistry()
	require.NoError(t, LoadRegistry(ctx, store, restored, scoring.DefaultStoreLastNPredictions))
	assertSameMetrics(t, original, restored)
}

func TestRedisStoreDropsStaleTasks(t *testing.T) {
	ctx := context.Background()
	client := newMemoryRedis()
	store := NewRedisStore(client, "fakenews:test")

	require.NoError(t, SaveRegistry(ctx, store, populatedRegistry()))

	only := scoring.NewTrackerRegistry()
	only.Register(namedTask("with_original"), scoring.NewPerformanceTracker(10))
	require.NoError(t, SaveRegistry(ctx, store, only))

	assert.NotContains(t, client.data, "fakenews:test:task:no_original")
	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, 1)
}

func TestLoadRegistryEnforcesCapacityAndSkipsUnknownTasks(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "history.zst"))

	big := scoring.NewPerformanceTracker(1000)
	for i := range 800 {
		big.Update(1, 1, float64(i%2), "hk1")
	}
	require.NoError(t, store.Save(ctx, RegistrySnapshot{
		"with_original": big.Snapshot(),
		"retired_task":  big.Snapshot(),
	}))

	registry := freshRegistry()
	require.NoError(t, LoadRegistry(ctx, store, registry, 500))

	tracker, ok := registry.Tracker("with_original")
	require.True(t, ok)
	assert.Equal(t, 500, tracker.Capacity())
	assert.Equal(t, 500, tracker.HistoryLen(1))
	assert.Equal(t, 2, registry.Len())

	untouched, _ := registry.Tracker("no_original")
	assert.Equal(t, 0, untouched.HistoryLen(1))
}

func TestOpenSelectsBackend(t *testing.T) {
	store, closeStore, err := Open(&config.TrackerStoreEnvConfig{TrackerStoreBackend: "file", TrackerStorePath: "history.json.zst"}, nil)
	require.NoError(t, err)
	defer closeStore()
	_, ok := store.(*FileStore)
	assert.True(t, ok)

	_, _, err = Open(&config.TrackerStoreEnvConfig{TrackerStoreBackend: "s3"}, nil)
	assert.Error(t, err)
}
