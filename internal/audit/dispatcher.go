package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull keeps Emit from ever waiting on the sink.
	DropIfFull bool
}

// Dispatcher relays sign-in, verification and reset outcomes to a Sink on
// a single background goroutine.
type Dispatcher struct {
	sink      Sink
	dropFull  bool
	queue     chan Event
	stopping  chan struct{}
	relayDone chan struct{}
	closed    atomic.Bool
	stopOnce  sync.Once

	// lost counts events that never reached the sink.
	lost atomic.Uint64
}

// NewDispatcher returns nil when cfg is disabled; a nil Dispatcher is a
// valid no-op.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:      sink,
		dropFull:  cfg.DropIfFull,
		queue:     make(chan Event, size),
		stopping:  make(chan struct{}),
		relayDone: make(chan struct{}),
	}
	go d.relay()
	return d
}

func (d *Dispatcher) relay() {
	defer close(d.relayDone)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stopping:
			d.flush()
			return
		}
	}
}

// flush hands whatever is still queued to the sink.
func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver isolates the relay from a panicking sink.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.lost.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event, stamping its time and ID when unset. With DropIfFull
// a full buffer loses the event; otherwise Emit waits for room until ctx
// ends, and an event abandoned that way is lost too.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = NewID(event.Timestamp)
	}

	if d.dropFull {
		select {
		case d.queue <- event:
		case <-d.stopping:
		default:
			d.lost.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-d.stopping:
	case <-ctx.Done():
		d.lost.Add(1)
	}
}

// Close stops accepting events and flushes the queue into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.stopping)
		<-d.relayDone
	})
}

// Dropped reports how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.lost.Load()
}
