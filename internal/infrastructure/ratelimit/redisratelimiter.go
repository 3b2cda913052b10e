package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lexora:ratelimit:"

// RedisRateLimiter keeps one sorted set per key and window, scored by the
// request time in nanoseconds. Denied requests are not recorded.
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: time.Now}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, windows ...Window) (Decision, error) {
	now := l.now()
	decision := Decision{Allowed: true, Limit: -1, Remaining: -1}

	limited := false
	for _, w := range windows {
		if w.Limit <= 0 {
			continue
		}

		count, oldest, err := l.count(ctx, l.key(key, w.Duration), w.Duration, now)
		if err != nil {
			return Decision{}, err
		}

		remaining := w.Limit - int(count)
		if decision.Remaining < 0 || remaining-1 < decision.Remaining {
			decision.Limit = w.Limit
			decision.Remaining = max(remaining-1, 0)
		}
		if remaining <= 0 {
			decision.Allowed = false
			decision.Remaining = 0
			decision.Limit = w.Limit
			retry := oldest.Add(w.Duration).Sub(now)
			if retry > decision.RetryAfter {
				decision.RetryAfter = retry
			}
			continue
		}
		limited = true
	}

	if !decision.Allowed || !limited {
		return decision, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	pipe := l.client.TxPipeline()
	for _, w := range windows {
		if w.Limit <= 0 {
			continue
		}
		redisKey := l.key(key, w.Duration)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		pipe.Expire(ctx, redisKey, w.Duration+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to record request: %w", err)
	}
	return decision, nil
}

// count drops entries older than the window and returns how many remain
// together with the time of the oldest one.
func (l *RedisRateLimiter) count(ctx context.Context, redisKey string, window time.Duration, now time.Time) (int64, time.Time, error) {
	windowStart := now.Add(-window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, redisKey)
	first := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count requests: %w", err)
	}

	oldest := now
	if entries := first.Val(); len(entries) > 0 {
		oldest = time.Unix(0, int64(entries[0].Score))
	}
	return card.Val(), oldest, nil
}

func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	iter := l.client.Scan(ctx, 0, keyPrefix+key+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return nil
}

func (l *RedisRateLimiter) key(identifier string, window time.Duration) string {
	return keyPrefix + identifier + ":" + window.String()
}
