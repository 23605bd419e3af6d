package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// FailurePacer pads failed login responses to a floor duration so that unknown
// accounts, wrong passwords and lockouts are indistinguishable by latency
type FailurePacer struct {
	floor  time.Duration
	jitter time.Duration

	sleep func(ctx context.Context, d time.Duration)
	since func(time.Time) time.Duration
}

// NewFailurePacer creates a pacer; a zero floor and jitter disables padding
func NewFailurePacer(floor, jitter time.Duration) *FailurePacer {
	return &FailurePacer{
		floor:  floor,
		jitter: jitter,
		sleep:  sleepContext,
		since:  time.Since,
	}
}

// PadFrom sleeps until floor+jitter has elapsed since start, or until ctx is done
func (p *FailurePacer) PadFrom(ctx context.Context, start time.Time) {
	target := p.floor + cryptoJitter(p.jitter)
	if remaining := target - p.since(start); remaining > 0 {
		p.sleep(ctx, remaining)
	}
}

// cryptoJitter returns a random duration in [0, max); crypto/rand keeps it unpredictable
func cryptoJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(max))
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
