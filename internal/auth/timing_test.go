package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newRecordingPacer(floor, jitter, elapsed time.Duration) (*FailurePacer, *[]time.Duration) {
	var slept []time.Duration
	p := NewFailurePacer(floor, jitter)
	p.sleep = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }
	p.since = func(time.Time) time.Duration { return elapsed }
	return p, &slept
}

func TestFailurePacer_PadsToFloor(t *testing.T) {
	p, slept := newRecordingPacer(250*time.Millisecond, 0, 40*time.Millisecond)

	p.PadFrom(context.Background(), time.Now())

	assert.Equal(t, []time.Duration{210 * time.Millisecond}, *slept)
}

func TestFailurePacer_NoWaitIfAlreadyExceeded(t *testing.T) {
	p, slept := newRecordingPacer(250*time.Millisecond, 0, 400*time.Millisecond)

	p.PadFrom(context.Background(), time.Now())

	assert.Empty(t, *slept)
}

func TestFailurePacer_JitterStaysInRange(t *testing.T) {
	p, slept := newRecordingPacer(100*time.Millisecond, 50*time.Millisecond, 0)

	for i := 0; i < 50; i++ {
		p.PadFrom(context.Background(), time.Now())
	}

	for _, d := range *slept {
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
}

func TestFailurePacer_Disabled(t *testing.T) {
	p, slept := newRecordingPacer(0, 0, 0)

	p.PadFrom(context.Background(), time.Now())

	assert.Empty(t, *slept)
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, 5*time.Second)

	assert.Less(t, time.Since(start), time.Second)
}
