package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	gate   chan struct{}
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	assert.Nil(t, d)

	// nil dispatcher is inert
	d.Emit(context.Background(), Event{EventType: "login"})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherStampsIDAndDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success", UserID: "123", Success: true})
	}
	d.Close()

	events := sink.snapshot()
	require.Len(t, events, 5)
	seen := map[string]bool{}
	for _, e := range events {
		_, err := ulid.ParseStrict(e.ID)
		require.NoError(t, err)
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestDispatcherKeepsCallerID(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	d.Emit(context.Background(), Event{ID: "fixed", EventType: "logout"})
	d.Close()

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "fixed", events[0].ID)
}

func TestDispatcherDropIfFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// one in flight at the sink, one buffered, the rest dropped
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "authorize_failure"})
	}
	assert.GreaterOrEqual(t, d.Dropped(), uint64(8))

	close(sink.gate)
	d.Close()
	assert.Equal(t, 10, len(sink.snapshot())+int(d.Dropped()))
}

func TestDispatcherBlockingHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})
	// "a" may still be on its way to the sink, so fill until we block.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "c"})
	d.Emit(ctx, Event{EventType: "d"})
	assert.GreaterOrEqual(t, d.Dropped(), uint64(1))

	close(sink.gate)
	d.Close()
}

func TestEmitAfterCloseIsIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "late"})
	assert.Empty(t, sink.snapshot())
}

func TestDispatcherIDsSortInEmissionOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{Timestamp: ts, EventType: "authorize_failure"})
	}
	d.Close()

	events := sink.snapshot()
	require.Len(t, events, 50)
	for i := 1; i < len(events); i++ {
		assert.Less(t, events[i-1].ID, events[i].ID, "event %d out of order", i)
	}
	id, err := ulid.ParseStrict(events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), id.Time())
}

type ctxKey struct{}

type ctxSink struct {
	mu     sync.Mutex
	values []any
	errs   []error
	gate   chan struct{}
}

func (s *ctxSink) Emit(ctx context.Context, _ Event) {
	<-s.gate
	s.mu.Lock()
	s.values = append(s.values, ctx.Value(ctxKey{}))
	s.errs = append(s.errs, ctx.Err())
	s.mu.Unlock()
}

func TestDispatcherKeepsRequestValuesAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &ctxSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "corr-1"))
	d.Emit(ctx, Event{EventType: "logout"})
	cancel()

	close(sink.gate)
	d.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.values, 1)
	assert.Equal(t, "corr-1", sink.values[0])
	assert.NoError(t, sink.errs[0])
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{ID: "01", EventType: "login_failure", Scheme: "jwt", ErrorKind: "AUTHORIZATION"})
	sink.Emit(context.Background(), Event{ID: "02", EventType: "logout", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "jwt", first.Scheme)
	assert.Equal(t, "AUTHORIZATION", first.ErrorKind)
	assert.NotContains(t, lines[1], "error_kind")
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewSlogSink(logger).Emit(context.Background(), Event{ID: "x", EventType: "login_success", Caller: "svc-a", Success: true})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "audit", rec["msg"])
	assert.Equal(t, "svc-a", rec["caller"])
	assert.Equal(t, true, rec["success"])
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "logout"})
	got := <-sink.Events()
	assert.Equal(t, "logout", got.EventType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Emit(context.Background(), Event{EventType: "fills"})
	sink.Emit(ctx, Event{EventType: "dropped"})
	assert.Len(t, sink.Events(), 1)
}
