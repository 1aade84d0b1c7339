package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	rateLimitKeyPrefix = "infobip:ratelimit"
	minWaitStep        = time.Millisecond
)

// windowScript counts one call in the window key and returns the new count.
// The key outlives the window by one window so late callers never reset it.
var windowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

var _ ratelimit.Limiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter enforces a fixed-window vendor call budget per channel,
// shared by every process using the same Infobip account.
type RedisRateLimiter struct {
	client *goredis.Client
	limits ratelimit.Limits
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRedisRateLimiter(client *goredis.Client, limits ratelimit.Limits) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, limits, time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	limits ratelimit.Limits,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client: client,
		limits: limits,
		now:    nowFn,
		sleep:  sleepFn,
	}, nil
}

// Wait blocks until the channel has budget, sleeping to the next window
// boundary whenever the current one is spent.
func (r *RedisRateLimiter) Wait(ctx context.Context, channel domain.ChannelID) error {
	for {
		delay, err := r.reserve(ctx, channel)
		if err != nil {
			return err
		}
		if delay == 0 {
			return nil
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// reserve returns zero when the call fits the window, otherwise the time
// left until the window closes.
func (r *RedisRateLimiter) reserve(ctx context.Context, channel domain.ChannelID) (time.Duration, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("rate limiter is not initialized")
	}
	if !channel.IsValid() {
		return 0, fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := r.now().UTC()
	window := r.limits.WindowOrDefault()
	key := windowKey(channel, r.limits.WindowStart(now))

	count, err := windowScript.Run(ctx, r.client, []string{key}, (2 * window).Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if count <= int64(r.limits.For(channel)) {
		return 0, nil
	}

	return max(r.limits.Delay(now), minWaitStep), nil
}

func windowKey(channel domain.ChannelID, windowStart time.Time) string {
	return rateLimitKeyPrefix + ":" + channel.String() + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
