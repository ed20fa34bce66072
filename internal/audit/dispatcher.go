package audit

import (
	"context"
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops and counts events when the buffer is full instead of
	// blocking the login or authorize call that produced them.
	DropIfFull bool
}

// queued pairs an event with the request context it was raised under, minus
// cancellation, so sinks can still read trace and correlation values after
// the request has returned.
type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher hands engine audit events to a Sink from one goroutine, so
// sinks see events in the order the engine raised them.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	ids   *idSource
	queue chan queued

	// mu guards closed and every send on queue; Close takes it exclusively
	// before closing the channel.
	mu      sync.RWMutex
	closed  bool
	drained chan struct{}
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is false;
// every method is safe on a nil receiver.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		ids:     newIDSource(),
		queue:   make(chan queued, cfg.BufferSize),
		drained: make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.drained)
	for item := range d.queue {
		d.sink.Emit(item.ctx, item.event)
	}
}

// Emit queues a login, authorize or logout event. A zero Timestamp becomes
// now in UTC and an empty ID becomes a ULID that sorts after every ID this
// dispatcher issued before it.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = d.ids.next(event.Timestamp)
	}
	item := queued{ctx: context.WithoutCancel(ctx), event: event}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- item:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- item:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close rejects further events, waits for blocked Emit calls, then delivers
// what is buffered before returning.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.drained
}

// Dropped returns the number of events discarded on a full buffer or an
// expired caller context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// idSource issues monotonic ULIDs. MonotonicEntropy is not safe for
// concurrent use, hence the mutex.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDSource() *idSource {
	return &idSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (s *idSource) next(ts time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(ts), s.entropy)
	if err != nil {
		// Entropy overflow inside one millisecond.
		return ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String()
	}
	return id.String()
}
