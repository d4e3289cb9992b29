package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kube-rca/diary/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisSessions keeps the active-session ledger in a sorted set scored by
// expiry, so several server instances can share one count.
type RedisSessions struct {
	client redis.Cmdable
	key    string
}

func NewRedisSessions(client redis.Cmdable, prefix string) *RedisSessions {
	return &RedisSessions{
		client: client,
		key:    prefix + "sessions",
	}
}

func (s *RedisSessions) RecordSession(ctx context.Context, session model.Session) error {
	member := redis.Z{
		Score:  float64(session.ExpiresAt.Unix()),
		Member: session.ID,
	}
	if err := s.client.ZAdd(ctx, s.key, member).Err(); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// CountActiveSessions drops expired members and counts the rest in one
// MULTI/EXEC round trip.
func (s *RedisSessions) CountActiveSessions(ctx context.Context, now time.Time) (int64, error) {
	cutoff := strconv.FormatInt(now.Unix(), 10)

	var count *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, s.key, "-inf", cutoff)
		count = pipe.ZCount(ctx, s.key, "("+cutoff, "+inf")
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count.Val(), nil
}
