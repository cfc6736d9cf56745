package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"floorview/internal/core/domain"
	"floorview/pkg/backoff"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// fakeDialer fails the first `failures` dials, then hands out conns.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	conns    []*fakeConn
	dials    atomic.Int32
	gate     chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.dials.Add(1)
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures != 0 {
		if d.failures > 0 {
			d.failures--
		}
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeTimer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the callback unless the timer was stopped, like time.AfterFunc.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.fn()
}

type fakeClock struct {
	scheduled chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{scheduled: make(chan *fakeTimer, 64)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{delay: d, fn: f}
	c.scheduled <- t
	return t
}

func (c *fakeClock) next(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-c.scheduled:
		return timer
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect was scheduled")
		return nil
	}
}

func (c *fakeClock) assertNone(t *testing.T) {
	t.Helper()
	select {
	case timer := <-c.scheduled:
		t.Fatalf("unexpected reconnect scheduled after %v", timer.delay)
	case <-time.After(50 * time.Millisecond):
	}
}

type countingObserver struct {
	events     atomic.Int32
	decodeErrs atomic.Int32
	reconnects atomic.Int32
}

func (o *countingObserver) EventReceived(domain.EventKind)   { o.events.Add(1) }
func (o *countingObserver) DecodeFailed()                    { o.decodeErrs.Add(1) }
func (o *countingObserver) ReconnectScheduled(time.Duration) { o.reconnects.Add(1) }
func (o *countingObserver) StateChanged(domain.ConnState)    {}

func newTestClient(d Dialer, clock *fakeClock, obs Observer) *Client {
	return NewClient(Options{
		URL:       "ws://line.test/ws",
		Backoff:   backoff.DefaultConfig(),
		Dialer:    d,
		AfterFunc: clock.AfterFunc,
		Observer:  obs,
	})
}

func waitState(t *testing.T, c *Client, want domain.ConnState) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, 2*time.Second, 5*time.Millisecond,
		"state never became %s, last %s", want, c.State())
}

func TestClient_BackoffSequence(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{failures: -1}
	c := newTestClient(dialer, clock, nil)
	defer c.Disconnect()

	require.NoError(t, c.Connect())

	var delays []time.Duration
	for i := 0; i < 7; i++ {
		timer := clock.next(t)
		delays = append(delays, timer.delay)
		if i < 6 {
			timer.fire()
		}
	}

	s := time.Second
	assert.Equal(t, []time.Duration{1 * s, 2 * s, 4 * s, 8 * s, 10 * s, 10 * s, 10 * s}, delays)
	assert.Equal(t, domain.StateReconnecting, c.State())
	assert.Equal(t, int32(7), dialer.dials.Load())
}

func TestClient_BackoffResetsAfterOpen(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{failures: 3}
	c := newTestClient(dialer, clock, nil)
	defer c.Disconnect()

	require.NoError(t, c.Connect())
	for _, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		timer := clock.next(t)
		require.Equal(t, want, timer.delay)
		timer.fire()
	}

	waitState(t, c, domain.StateOpen)
	assert.Equal(t, time.Second, c.CurrentDelay())

	// server drops the connection
	close(dialer.lastConn().frames)

	timer := clock.next(t)
	assert.Equal(t, time.Second, timer.delay)
	assert.Equal(t, domain.StateReconnecting, c.State())
}

func TestClient_DisconnectCancelsPendingTimer(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{failures: -1}
	c := newTestClient(dialer, clock, nil)

	require.NoError(t, c.Connect())
	timer := clock.next(t)
	require.Equal(t, int32(1), dialer.dials.Load())

	c.Disconnect()
	assert.True(t, timer.isStopped())
	assert.Equal(t, domain.StateDisconnected, c.State())

	// even a callback that slipped past Stop must not dial
	timer.fn()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(1), dialer.dials.Load())
	assert.Equal(t, domain.StateDisconnected, c.State())
	assert.ErrorIs(t, c.Connect(), domain.ErrDisconnected)
	clock.assertNone(t)
}

func TestClient_ConnectIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{gate: make(chan struct{})}
	c := newTestClient(dialer, clock, nil)
	defer c.Disconnect()

	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())
	assert.Equal(t, domain.StateConnecting, c.State())

	close(dialer.gate)
	waitState(t, c, domain.StateOpen)
	require.NoError(t, c.Connect())

	assert.Equal(t, int32(1), dialer.dials.Load())
}

func TestClient_ConnectWhileReconnectingCancelsTimer(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{failures: 1}
	c := newTestClient(dialer, clock, nil)
	defer c.Disconnect()

	require.NoError(t, c.Connect())
	timer := clock.next(t)

	require.NoError(t, c.Connect())
	assert.True(t, timer.isStopped())
	waitState(t, c, domain.StateOpen)

	// the stale timer firing late must not open a second socket
	timer.fn()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), dialer.dials.Load())
}

func TestClient_DeliversInOrderAndDropsMalformed(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{}
	obs := &countingObserver{}
	c := newTestClient(dialer, clock, obs)

	var mu sync.Mutex
	var first, second []string
	c.OnEvent(func(ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, ev.Payload.(*domain.InspectionPayload).PartID)
	})
	c.OnEvent(func(ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		second = append(second, ev.Payload.(*domain.InspectionPayload).PartID)
	})

	require.NoError(t, c.Connect())
	waitState(t, c, domain.StateOpen)

	conn := dialer.lastConn()
	conn.frames <- []byte(`{"type":"inspection","data":{"part_id":"part-0001"}}`)
	conn.frames <- []byte(`not json at all`)
	conn.frames <- []byte(`{"type":"inspection","data":{"part_id":"part-0002"}}`)

	require.Eventually(t, func() bool { return obs.events.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StateOpen, c.State(), "decode failures leave the connection alone")
	c.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"part-0001", "part-0002"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), obs.decodeErrs.Load())
	assert.True(t, conn.isClosed())
}

func TestClient_NoCallbacksAfterDisconnect(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{}
	c := newTestClient(dialer, clock, nil)

	var calls atomic.Int32
	c.OnEvent(func(domain.Event) { calls.Add(1) })

	require.NoError(t, c.Connect())
	waitState(t, c, domain.StateOpen)
	conn := dialer.lastConn()

	c.Disconnect()
	select {
	case conn.frames <- []byte(`{"type":"inspection","data":{}}`):
	default:
	}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
	clock.assertNone(t)
}

func TestClient_KeepaliveSendsPing(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{}
	c := NewClient(Options{
		URL:          "ws://line.test/ws",
		Dialer:       dialer,
		AfterFunc:    clock.AfterFunc,
		PingInterval: 5 * time.Millisecond,
	})
	defer c.Disconnect()

	require.NoError(t, c.Connect())
	waitState(t, c, domain.StateOpen)
	conn := dialer.lastConn()

	require.Eventually(t, func() bool { return conn.writeCount() > 0 }, time.Second, 5*time.Millisecond)
	conn.mu.Lock()
	assert.JSONEq(t, `{"type":"ping"}`, string(conn.writes[0]))
	conn.mu.Unlock()
}

func TestClient_ReconnectsToRealServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var accepted atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := accepted.Add(1)

		frame, _ := Encode(domain.KindFactoryFloor, map[string]interface{}{
			"animation": "PLACE",
			"target":    "BIN_A",
			"part_id":   fmt.Sprintf("part-%04d", n),
		}, time.Now())
		conn.WriteMessage(websocket.TextMessage, frame)

		if n == 1 {
			// first session ends abruptly to force a reconnect
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := NewClient(Options{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Backoff: backoff.Config{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2},
	})

	var mu sync.Mutex
	var parts []string
	c.OnEvent(func(ev domain.Event) {
		if p, ok := ev.Payload.(*domain.FactoryFloorPayload); ok {
			mu.Lock()
			parts = append(parts, p.PartID)
			mu.Unlock()
		}
	})

	require.NoError(t, c.Connect())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(parts) == 2
	}, 3*time.Second, 10*time.Millisecond)
	waitState(t, c, domain.StateOpen)

	c.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"part-0001", "part-0002"}, parts)
	assert.GreaterOrEqual(t, accepted.Load(), int32(2))
}
