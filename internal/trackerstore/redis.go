package trackerstore

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/internal/utils/redis"
)

// RedisStore keeps one key per task plus an index key listing the tasks.
type RedisStore struct {
	client redis.RedisInterface
	prefix string
}

func NewRedisStore(client redis.RedisInterface, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":tasks"
}

func (s *RedisStore) taskKey(taskName string) string {
	return s.prefix + ":task:" + taskName
}

func (s *RedisStore) Save(ctx context.Context, snapshot RegistrySnapshot) error {
	kv := make(map[string]string, len(snapshot))
	taskNames := make([]string, 0, len(snapshot))
	for taskName, trackerSnapshot := range snapshot {
		data, err := sonic.MarshalString(trackerSnapshot)
		if err != nil {
			return fmt.Errorf("marshal tracker %s: %w", taskName, err)
		}
		kv[s.taskKey(taskName)] = data
		taskNames = append(taskNames, taskName)
	}

	stale, err := s.storedTasks(ctx)
	if err != nil {
		return err
	}
	var staleKeys []string
	for _, taskName := range stale {
		if _, ok := snapshot[taskName]; !ok {
			staleKeys = append(staleKeys, s.taskKey(taskName))
		}
	}
	if err := s.client.Del(ctx, staleKeys...); err != nil {
		return fmt.Errorf("redis: drop stale trackers: %w", err)
	}

	if err := s.client.SetMulti(ctx, kv); err != nil {
		return fmt.Errorf("redis: write trackers: %w", err)
	}

	index, err := sonic.MarshalString(taskNames)
	if err != nil {
		return fmt.Errorf("marshal task index: %w", err)
	}
	if err := s.client.Set(ctx, s.indexKey(), index, 0); err != nil {
		return fmt.Errorf("redis: write task index: %w", err)
	}
	return nil
}

func (s *RedisStore) storedTasks(ctx context.Context) ([]string, error) {
	index, err := s.client.Get(ctx, s.indexKey())
	if err != nil {
		return nil, fmt.Errorf("redis: read task index: %w", err)
	}
	if index == "" {
		return nil, nil
	}

	var taskNames []string
	if err := sonic.UnmarshalString(index, &taskNames); err != nil {
		return nil, fmt.Errorf("unmarshal task index: %w", err)
	}
	return taskNames, nil
}

func (s *RedisStore) Load(ctx context.Context) (RegistrySnapshot, error) {
	taskNames, err := s.storedTasks(ctx)
	if err != nil {
		return nil, err
	}
	if taskNames == nil {
		return nil, ErrNotFound
	}

	keys := make([]string, len(taskNames))
	for i, taskName := range taskNames {
		keys[i] = s.taskKey(taskName)
	}
	values, err := s.client.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("redis: read trackers: %w", err)
	}

	snapshot := make(RegistrySnapshot, len(taskNames))
	for _, taskName := range taskNames {
		data := values[s.taskKey(taskName)]
		if data == "" {
			continue
		}
		var trackerSnapshot scoring.TrackerSnapshot
		if err := sonic.UnmarshalString(data, &trackerSnapshot); err != nil {
			return nil, fmt.Errorf("unmarshal tracker %s: %w", taskName, err)
		}
		snapshot[taskName] = trackerSnapshot
	}
	return snapshot, nil
}
