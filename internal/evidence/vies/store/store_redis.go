package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"euvat/pkg/platform/sentinel"
)

const memoKeyPrefix = "euvat:vies:memo:"

// RedisMemo shares the session memo between instances.
type RedisMemo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMemo(client *redis.Client, ttl time.Duration) *RedisMemo {
	return &RedisMemo{client: client, ttl: ttl}
}

func (s *RedisMemo) Save(ctx context.Context, sessionID string, memo Memo) error {
	payload, err := json.Marshal(memo)
	if err != nil {
		return fmt.Errorf("marshal memo: %w", err)
	}
	return s.client.Set(ctx, memoKeyPrefix+sessionID, payload, s.ttl).Err()
}

func (s *RedisMemo) Find(ctx context.Context, sessionID string) (Memo, error) {
	raw, err := s.client.Get(ctx, memoKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Memo{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Memo{}, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	var memo Memo
	if err := json.Unmarshal(raw, &memo); err != nil {
		return Memo{}, fmt.Errorf("%w: %v", sentinel.ErrBadData, err)
	}
	return memo, nil
}

func (s *RedisMemo) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, memoKeyPrefix+sessionID).Err()
}
