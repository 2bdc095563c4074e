package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"pokernight/internal/roster"
	"pokernight/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is a Redis-backed roster store. Every write refreshes the TTL of the
// table and of the session's table index, so rosters expire with the session.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

var _ roster.Store = (*Store)(nil)

func (s *Store) LoadTable(ctx context.Context, sessionID string, number int) (*roster.Table, error) {
	data, err := s.client.Get(ctx, tableKey(sessionID, number)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, roster.ErrTableNotFound
		}
		return nil, err
	}

	var table roster.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	table.Number = number
	return &table, nil
}

func (s *Store) SaveTable(ctx context.Context, sessionID string, table *roster.Table) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}

	indexKey := tablesIndexKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tableKey(sessionID, table.Number), data, s.ttl)
	pipe.SAdd(ctx, indexKey, table.Number)
	if s.ttl > 0 {
		pipe.Expire(ctx, indexKey, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) DeleteTable(ctx context.Context, sessionID string, number int) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tableKey(sessionID, number))
	pipe.SRem(ctx, tablesIndexKey(sessionID), number)
	_, err := pipe.Exec(ctx)
	return err
}

// TableNumbers lists the session's open tables, pruning index entries whose
// table key has already expired.
func (s *Store) TableNumbers(ctx context.Context, sessionID string) ([]int, error) {
	indexKey := tablesIndexKey(sessionID)
	members, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []int{}, nil
	}

	numbers := make([]int, 0, len(members))
	for _, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(numbers))
	for i, n := range numbers {
		checks[i] = pipe.Exists(ctx, tableKey(sessionID, n))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	live := make([]int, 0, len(numbers))
	stale := make([]interface{}, 0)
	for i, n := range numbers {
		if checks[i].Val() > 0 {
			live = append(live, n)
		} else {
			stale = append(stale, n)
		}
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			logger.Log.Warn("failed to prune roster index",
				zap.String("sessionID", sessionID),
				zap.Error(err))
		}
	}

	sort.Ints(live)
	return live, nil
}
