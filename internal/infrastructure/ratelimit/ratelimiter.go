// Package ratelimit counts requests per key over sliding windows.
package ratelimit

import (
	"context"
	"time"
)

// Window allows at most Limit requests per key within Duration.
// A window with a non-positive limit is ignored.
type Window struct {
	Duration time.Duration
	Limit    int
}

// PerMinute is a one minute window.
func PerMinute(limit int) Window {
	return Window{Duration: time.Minute, Limit: limit}
}

// Decision is the outcome of a single Allow call. Limit and Remaining refer
// to the tightest window.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, windows ...Window) (Decision, error)
	Reset(ctx context.Context, key string) error
}

type nopRateLimiter struct{}

// NewNopRateLimiter admits every request. It stands in when Redis is off.
func NewNopRateLimiter() RateLimiter { return nopRateLimiter{} }

func (nopRateLimiter) Allow(context.Context, string, ...Window) (Decision, error) {
	return Decision{Allowed: true, Limit: -1, Remaining: -1}, nil
}

func (nopRateLimiter) Reset(context.Context, string) error { return nil }
