package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/article-crawler/internal/repository"
	"github.com/user/article-crawler/pkg/utils"
)

const seenSetPrefix = "crawler:seen:"

// SeenSetImpl keeps the keys of one processor run in a Redis set. The set
// expires after ttl so an aborted run leaves nothing behind for long.
type SeenSetImpl struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSeenSet creates a seen set scoped to runID.
func NewSeenSet(client *redis.Client, runID string, ttl time.Duration) *SeenSetImpl {
	return &SeenSetImpl{
		client: client,
		key:    seenSetPrefix + runID,
		ttl:    ttl,
	}
}

var _ repository.SeenSet = (*SeenSetImpl)(nil)

// Key returns the Redis key backing the set.
func (s *SeenSetImpl) Key() string {
	return s.key
}

// Add stores the hashed key and refreshes the expiry in one round trip.
func (s *SeenSetImpl) Add(ctx context.Context, key string) (bool, error) {
	var added *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, s.key, utils.HashURL(key))
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seen set add: %w", err)
	}
	return added.Val() == 1, nil
}

func (s *SeenSetImpl) Contains(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, utils.HashURL(key)).Result()
	if err != nil {
		return false, fmt.Errorf("seen set lookup: %w", err)
	}
	return ok, nil
}

// Reset drops the whole run set.
func (s *SeenSetImpl) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
