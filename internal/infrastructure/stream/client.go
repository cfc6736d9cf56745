// Package stream maintains the websocket connection to the line backend and
// republishes decoded events.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"floorview/internal/core/domain"
	"floorview/internal/infrastructure/dispatch"
	"floorview/pkg/backoff"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is the subset of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// SystemAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func SystemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Observer receives connection telemetry. Methods may be called from several
// goroutines, StateChanged with the client lock held, so implementations
// must not call back into the client.
type Observer interface {
	EventReceived(kind domain.EventKind)
	DecodeFailed()
	ReconnectScheduled(delay time.Duration)
	StateChanged(state domain.ConnState)
}

type nopObserver struct{}

func (nopObserver) EventReceived(domain.EventKind)   {}
func (nopObserver) DecodeFailed()                    {}
func (nopObserver) ReconnectScheduled(time.Duration) {}
func (nopObserver) StateChanged(domain.ConnState)    {}

var pingFrame = []byte(`{"type":"ping"}`)

type Options struct {
	URL              string
	Backoff          backoff.Config
	HandshakeTimeout time.Duration
	// PingInterval enables the application-level keepalive when > 0.
	PingInterval time.Duration

	Dialer    Dialer
	AfterFunc AfterFunc
	Now       func() time.Time
	Observer  Observer
	Logger    *zap.SugaredLogger
}

// session is one live socket and the goroutines bound to it.
type session struct {
	conn Conn
	done chan struct{}
	once sync.Once
}

func (s *session) end() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Client owns at most one socket and at most one pending reconnect timer.
type Client struct {
	opts      Options
	listeners *dispatch.Registry[domain.Event]
	logger    *zap.SugaredLogger

	mu      sync.Mutex
	state   domain.ConnState
	backoff *backoff.Backoff
	sess    *session
	timer   Timer
	gen     uint64

	ctx    context.Context
	cancel context.CancelFunc

	stopped    atomic.Bool
	dispatchMu sync.RWMutex
	wg         sync.WaitGroup
}

func NewClient(opts Options) *Client {
	if opts.Backoff == (backoff.Config{}) {
		opts.Backoff = backoff.DefaultConfig()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = NewWebsocketDialer(opts.HandshakeTimeout, 0)
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = SystemAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		opts:    opts,
		logger:  opts.Logger,
		state:   domain.StateIdle,
		backoff: backoff.New(opts.Backoff),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.listeners = dispatch.New[domain.Event](dispatch.WithPanicHandler[domain.Event](func(rec any) {
		c.logger.Errorw("event listener panicked", "panic", rec)
	}))
	return c
}

// OnEvent registers fn for every decoded event. Listeners run on the
// client's read goroutine, in registration order.
func (c *Client) OnEvent(fn func(domain.Event)) (unsubscribe func()) {
	return c.listeners.Subscribe(fn)
}

func (c *Client) State() domain.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentDelay is the delay the next reconnect would wait.
func (c *Client) CurrentDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff.Current()
}

// Connect starts a connection attempt unless one is open or in progress. A
// pending reconnect timer is cancelled first. It does not block on the dial.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case domain.StateDisconnected:
		return domain.ErrDisconnected
	case domain.StateConnecting, domain.StateOpen:
		return nil
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.startDialLocked()
	return nil
}

// Disconnect stops the client for good. It cancels the pending timer, closes
// the socket and waits for in-flight dispatch, so no listener runs after it
// returns. It must not be called from inside a listener.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == domain.StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.stopped.Store(true)
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	sess := c.sess
	c.sess = nil
	c.setStateLocked(domain.StateDisconnected)
	c.cancel()
	c.mu.Unlock()

	if sess != nil {
		sess.end()
	}

	// wait out a dispatch that started before stopped was set
	c.dispatchMu.Lock()
	c.dispatchMu.Unlock()

	c.wg.Wait()
	c.logger.Infow("stream client disconnected", "url", c.opts.URL)
}

func (c *Client) startDialLocked() {
	c.gen++
	gen := c.gen
	c.setStateLocked(domain.StateConnecting)

	c.wg.Add(1)
	go c.dial(gen)
}

func (c *Client) dial(gen uint64) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.HandshakeTimeout)
	conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state == domain.StateDisconnected {
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.logger.Warnw("stream dial failed", "url", c.opts.URL, "error", err)
		c.setStateLocked(domain.StateClosed)
		c.scheduleReconnectLocked()
		return
	}

	sess := &session{conn: conn, done: make(chan struct{})}
	c.sess = sess
	c.backoff.Reset()
	c.setStateLocked(domain.StateOpen)
	c.logger.Infow("stream connected", "url", c.opts.URL)

	c.wg.Add(1)
	go c.readLoop(gen, sess)

	if c.opts.PingInterval > 0 {
		c.wg.Add(1)
		go c.keepalive(sess)
	}
}

func (c *Client) readLoop(gen uint64, sess *session) {
	defer c.wg.Done()

	for {
		_, frame, err := sess.conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, sess, err)
			return
		}

		ev, err := Decode(frame, c.opts.Now())
		if err != nil {
			c.opts.Observer.DecodeFailed()
			c.logger.Debugw("dropping undecodable frame", "error", err, "size", len(frame))
			continue
		}
		c.deliver(ev)
	}
}

func (c *Client) deliver(ev domain.Event) {
	c.dispatchMu.RLock()
	defer c.dispatchMu.RUnlock()

	if c.stopped.Load() {
		return
	}

	c.opts.Observer.EventReceived(ev.Kind)
	c.listeners.Publish(ev)
}

func (c *Client) keepalive(sess *session) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sess.conn.WriteMessage(websocket.TextMessage, pingFrame); err != nil {
				c.logger.Debugw("keepalive write failed", "error", err)
				// closing unblocks the reader, which schedules the reconnect
				sess.end()
				return
			}
		case <-sess.done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) handleClose(gen uint64, sess *session, err error) {
	sess.end()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state == domain.StateDisconnected {
		return
	}
	c.sess = nil

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Warnw("stream closed unexpectedly", "url", c.opts.URL, "error", err)
	} else {
		c.logger.Infow("stream closed", "url", c.opts.URL, "error", err)
	}

	c.setStateLocked(domain.StateClosed)
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked is a no-op while a timer is pending.
func (c *Client) scheduleReconnectLocked() {
	if c.timer != nil {
		return
	}

	delay := c.backoff.Next()
	gen := c.gen
	c.setStateLocked(domain.StateReconnecting)
	c.opts.Observer.ReconnectScheduled(delay)
	c.logger.Infow("reconnect scheduled", "delay", delay, "attempt", c.backoff.Attempts())

	c.timer = c.opts.AfterFunc(delay, func() {
		c.fireReconnect(gen)
	})
}

func (c *Client) fireReconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// a Connect or Disconnect that raced the timer already moved on
	if gen != c.gen || c.state != domain.StateReconnecting {
		return
	}
	c.timer = nil
	c.startDialLocked()
}

func (c *Client) setStateLocked(s domain.ConnState) {
	if c.state == s {
		return
	}
	c.state = s
	c.opts.Observer.StateChanged(s)
}
