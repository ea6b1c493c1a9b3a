package fieldquad

import (
	"context"
	"time"
)

// TickFunc handles one tick. Returning false stops the scheduler cleanly.
type TickFunc func(tick uint64) (bool, error)

// FixedDelayScheduler calls a tick handler, then sleeps for Interval, forever.
//
// It is not drift-correcting: the sleep does not subtract the time the
// handler took, so a loaded tick stretches the period instead of being
// caught up later.
type FixedDelayScheduler struct {
	Interval time.Duration
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
	// OnTick observes the handler duration of every completed tick.
	OnTick func(tick uint64, took time.Duration)
}

// IntervalFor returns the tick interval for a frame rate.
func IntervalFor(frameRate int) time.Duration {
	return time.Second / time.Duration(frameRate)
}

// Run drives handler until it returns false or an error, or ctx is done.
// ctx is only observed between ticks.
func (s FixedDelayScheduler) Run(ctx context.Context, handler TickFunc) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	for tick := uint64(0); ; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		more, err := handler(tick)
		if s.OnTick != nil {
			s.OnTick(tick, time.Since(start))
		}
		if err != nil || !more {
			return err
		}
		sleep(s.Interval)
	}
}
