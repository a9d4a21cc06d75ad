package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
)

// ErrLimited is the error callers return when Check denies a request.
var ErrLimited = errors.New("rate limit exceeded")

// Well-known policy names.
const (
	PolicyAuth     = "auth"
	PolicyMutation = "mutation"
)

// Policy is a named fixed-window limit.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// PolicyFromConfig builds a named policy from its configuration block.
func PolicyFromConfig(name string, cfg config.PolicyConfig) Policy {
	return Policy{Name: name, Limit: cfg.Limit, Window: cfg.WindowDuration()}
}

// Result is the outcome of one Check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

// Counter atomically increments the bucket at key and returns the new
// count. Implementations stop incrementing once the count exceeds limit and
// expire the bucket after ttl.
type Counter interface {
	IncrementAndGet(ctx context.Context, key string, limit int, ttl time.Duration) (int64, error)
}

// Limiter applies policies against a Counter.
type Limiter struct {
	counter Counter
	prefix  string
	now     func() time.Time
}

// NewLimiter creates a limiter. prefix namespaces bucket keys in a shared
// store.
func NewLimiter(counter Counter, prefix string) *Limiter {
	return &Limiter{counter: counter, prefix: prefix, now: time.Now}
}

// Check counts one request for key under p.
func (l *Limiter) Check(ctx context.Context, p Policy, key string) (Result, error) {
	windowSecs := int64(p.Window / time.Second)
	if windowSecs < 1 || p.Limit < 1 {
		return Result{}, fmt.Errorf("invalid rate limit policy %q", p.Name)
	}

	now := l.now()
	start := now.Unix() - now.Unix()%windowSecs
	resetAt := time.Unix(start+windowSecs, 0)

	count, err := l.counter.IncrementAndGet(ctx, l.bucketKey(p.Name, key, start), p.Limit, p.Window)
	if err != nil {
		return Result{}, fmt.Errorf("incrementing %s bucket: %w", p.Name, err)
	}

	res := Result{
		Allowed:   count <= int64(p.Limit),
		Limit:     p.Limit,
		Remaining: max(p.Limit-int(count), 0),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = retryAfter(resetAt.Sub(now))
	}
	return res, nil
}

func (l *Limiter) bucketKey(policy, key string, windowStart int64) string {
	return l.prefix + policy + ":" + key + ":" + strconv.FormatInt(windowStart, 10)
}

// retryAfter rounds up to whole seconds, never below one.
func retryAfter(d time.Duration) time.Duration {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
