package timing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEqualizerStartsAtDefault(t *testing.T) {
	e := NewEqualizer("email_signin_request", 0)
	if got := e.Estimate(); got != DefaultEstimate {
		t.Fatalf("expected %v, got %v", DefaultEstimate, got)
	}
	if e.Name() != "email_signin_request" {
		t.Fatalf("unexpected name %q", e.Name())
	}
}

func TestEqualizerTracksLatestObservation(t *testing.T) {
	e := NewEqualizer("op", 50*time.Millisecond)

	e.Observe(80 * time.Millisecond)
	if got := e.Estimate(); got != 80*time.Millisecond {
		t.Fatalf("expected 80ms, got %v", got)
	}

	e.Observe(0)
	e.Observe(-time.Second)
	if got := e.Estimate(); got != 80*time.Millisecond {
		t.Fatalf("non-positive observations must be ignored, got %v", got)
	}

	e.Observe(30 * time.Millisecond)
	if got := e.Estimate(); got != 30*time.Millisecond {
		t.Fatalf("expected 30ms, got %v", got)
	}
}

func TestEqualizerWaitMatchesRealPath(t *testing.T) {
	e := NewEqualizer("op", time.Millisecond)

	realPath := func() time.Duration {
		start := time.Now()
		time.Sleep(40 * time.Millisecond)
		e.ObserveSince(start)
		return time.Since(start)
	}
	fakePath := func() time.Duration {
		start := time.Now()
		if err := e.Wait(context.Background()); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
		return time.Since(start)
	}

	for i := 0; i < 3; i++ {
		realElapsed := realPath()
		fakeElapsed := fakePath()
		diff := realElapsed - fakeElapsed
		if diff < 0 {
			diff = -diff
		}
		if diff > 25*time.Millisecond {
			t.Fatalf("trial %d: real %v vs fake %v differ by %v", i, realElapsed, fakeElapsed, diff)
		}
	}
}

func TestEqualizerWaitFromCountsSpentTime(t *testing.T) {
	e := NewEqualizer("op", 30*time.Millisecond)

	start := time.Now().Add(-time.Second)
	began := time.Now()
	if err := e.WaitFrom(context.Background(), start); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(began); elapsed > 10*time.Millisecond {
		t.Fatalf("already-spent time should satisfy the estimate, waited %v", elapsed)
	}
}

func TestEqualizerWaitIsCancellable(t *testing.T) {
	e := NewEqualizer("op", 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := e.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation did not interrupt wait, took %v", elapsed)
	}
}

func TestNilEqualizerIsInert(t *testing.T) {
	var e *Equalizer
	e.Observe(time.Second)
	if e.Estimate() != 0 {
		t.Fatal("nil equalizer estimate should be zero")
	}
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("nil equalizer wait should be a no-op, got %v", err)
	}
}
