package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// BackupStore implements usecase.BackupStore in Redis. Names are kept
// newest first in a list and payloads in a hash; only the newest retention
// backups survive a Save.
type BackupStore struct {
	client    redis.UniversalClient
	indexKey  string
	dataKey   string
	retention int
}

// NewBackupStore creates a BackupStore. A non-positive retention keeps every backup.
func NewBackupStore(client redis.UniversalClient, retention int) *BackupStore {
	return &BackupStore{
		client:    client,
		indexKey:  "fxledger:backups:index",
		dataKey:   "fxledger:backups:data",
		retention: retention,
	}
}

// Save stores payload under name and prunes backups beyond the retention.
func (s *BackupStore) Save(ctx context.Context, name string, payload []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.dataKey, name, payload)
		pipe.LRem(ctx, s.indexKey, 0, name)
		pipe.LPush(ctx, s.indexKey, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save backup %s: %w", name, err)
	}

	if s.retention <= 0 {
		return nil
	}
	return s.prune(ctx)
}

func (s *BackupStore) prune(ctx context.Context) error {
	stale, err := s.client.LRange(ctx, s.indexKey, int64(s.retention), -1).Result()
	if err != nil {
		return fmt.Errorf("list stale backups: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LTrim(ctx, s.indexKey, 0, int64(s.retention)-1)
		pipe.HDel(ctx, s.dataKey, stale...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune backups: %w", err)
	}
	return nil
}

// Latest returns the newest payload, or nil when no backup exists.
func (s *BackupStore) Latest(ctx context.Context) ([]byte, error) {
	name, err := s.client.LIndex(ctx, s.indexKey, 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest backup name: %w", err)
	}

	payload, err := s.client.HGet(ctx, s.dataKey, name).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load backup %s: %w", name, err)
	}
	return payload, nil
}

// Names lists stored backups, newest first.
func (s *BackupStore) Names(ctx context.Context) ([]string, error) {
	return s.client.LRange(ctx, s.indexKey, 0, -1).Result()
}
