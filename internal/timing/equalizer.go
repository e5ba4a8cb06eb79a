package timing

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultEstimate seeds a new Equalizer before any real execution was observed.
const DefaultEstimate = 200 * time.Millisecond

// Equalizer replays the latency of a real execution path on a fake one.
//
// It keeps a single estimate, the elapsed time of the most recent real
// execution. That hides the large gap between "nothing to do" and "looked
// up, generated, stored, and sent", but it is not a statistical guarantee:
// latency variance of the real path still leaks to a patient observer.
type Equalizer struct {
	name     string
	estimate atomic.Int64
	now      func() time.Time
}

// NewEqualizer returns an Equalizer seeded with initial (DefaultEstimate when
// initial is not positive).
func NewEqualizer(name string, initial time.Duration) *Equalizer {
	if initial <= 0 {
		initial = DefaultEstimate
	}
	e := &Equalizer{name: name, now: time.Now}
	e.estimate.Store(int64(initial))
	return e
}

func (e *Equalizer) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Estimate returns the current latency estimate.
func (e *Equalizer) Estimate() time.Duration {
	if e == nil {
		return 0
	}
	return time.Duration(e.estimate.Load())
}

// Observe records the elapsed time of a real execution.
func (e *Equalizer) Observe(elapsed time.Duration) {
	if e == nil || elapsed <= 0 {
		return
	}
	e.estimate.Store(int64(elapsed))
}

// ObserveSince records the time elapsed since start.
func (e *Equalizer) ObserveSince(start time.Time) {
	if e == nil {
		return
	}
	e.Observe(e.now().Sub(start))
}

// Wait blocks for the current estimate. It returns ctx.Err() when the
// context ends first.
func (e *Equalizer) Wait(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.WaitFrom(ctx, e.now())
}

// WaitFrom blocks until the estimate has elapsed since start, so time the
// caller already spent on the fake path counts toward the total.
func (e *Equalizer) WaitFrom(ctx context.Context, start time.Time) error {
	if e == nil {
		return nil
	}
	remaining := e.Estimate() - e.now().Sub(start)
	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
