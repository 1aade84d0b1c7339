package ratelimit

import (
	"testing"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

func TestLimitsFor(t *testing.T) {
	t.Parallel()

	limits := Limits{
		PerWindow: 20,
		PerChannel: map[domain.ChannelID]int{
			domain.ChannelSMS:   50,
			domain.ChannelVoice: 0,
		},
	}

	tests := []struct {
		name    string
		limits  Limits
		channel domain.ChannelID
		want    int
	}{
		{name: "channel override", limits: limits, channel: domain.ChannelSMS, want: 50},
		{name: "shared budget", limits: limits, channel: domain.ChannelEmail, want: 20},
		{name: "zero override ignored", limits: limits, channel: domain.ChannelVoice, want: 20},
		{name: "empty limits", limits: Limits{}, channel: domain.ChannelSMS, want: DefaultPerSecond},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.limits.For(tt.channel); got != tt.want {
				t.Fatalf("For(%s) = %d, want %d", tt.channel, got, tt.want)
			}
		})
	}
}

func TestLimitsDelay(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 250*int64(time.Millisecond))

	if got := (Limits{}).Delay(now); got != 750*time.Millisecond {
		t.Fatalf("Delay() = %s, want 750ms", got)
	}

	minute := Limits{Window: time.Minute}
	if got := minute.WindowStart(now); !got.Equal(time.Unix(1_699_999_980, 0)) {
		t.Fatalf("WindowStart() = %s, want start of minute", got)
	}
	if got := minute.Delay(time.Unix(1_699_999_980, 0)); got != time.Minute {
		t.Fatalf("Delay() at window start = %s, want 1m", got)
	}
}
