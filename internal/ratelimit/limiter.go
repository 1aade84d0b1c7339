package ratelimit

import (
	"context"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

const (
	DefaultPerSecond = 100
	DefaultWindow    = time.Second
)

// Limiter throttles vendor calls of one channel.
type Limiter interface {
	Wait(ctx context.Context, channel domain.ChannelID) error
}

// Limits holds the vendor call budget per window. Channels without an
// explicit entry share PerWindow.
type Limits struct {
	PerWindow  int
	Window     time.Duration
	PerChannel map[domain.ChannelID]int
}

// For returns the budget of a channel, falling back to the defaults for
// unset or non-positive values.
func (l Limits) For(channel domain.ChannelID) int {
	if n, ok := l.PerChannel[channel]; ok && n > 0 {
		return n
	}
	if l.PerWindow > 0 {
		return l.PerWindow
	}
	return DefaultPerSecond
}

func (l Limits) WindowOrDefault() time.Duration {
	if l.Window <= 0 {
		return DefaultWindow
	}
	return l.Window
}

// WindowStart truncates t to the window it falls in.
func (l Limits) WindowStart(t time.Time) time.Time {
	return t.Truncate(l.WindowOrDefault())
}

// Delay is the time left until the window containing now closes.
func (l Limits) Delay(now time.Time) time.Duration {
	return l.WindowStart(now).Add(l.WindowOrDefault()).Sub(now)
}
