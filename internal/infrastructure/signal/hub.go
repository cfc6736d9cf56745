package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"floorview/internal/core/domain"
	"floorview/internal/infrastructure/stream"
	"floorview/pkg/tracing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the dashboard connects from any host on the line network
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HubMetrics receives connection and broadcast counters.
type HubMetrics interface {
	SetHubClients(n int)
	RecordBroadcast(kind domain.EventKind)
}

// Relay carries envelopes between simulator instances.
type Relay interface {
	Publish(ctx context.Context, frame []byte) error
}

type HubOptions struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	ReadLimitBytes    int64
	MessagesPerSecond float64
	Burst             int
	Metrics           HubMetrics
	Logger            *zap.SugaredLogger
}

// Hub is the websocket end of the line stream. Every connected client
// receives every envelope.
type Hub struct {
	clients map[string]*hubClient
	mu      sync.RWMutex

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
	readLimit    int64
	msgRate      rate.Limit
	msgBurst     int

	relay   Relay
	metrics HubMetrics
	logger  *zap.SugaredLogger
}

type hubClient struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	limiter *rate.Limiter
}

// inbound is what a dashboard may send; only ping is answered.
type inbound struct {
	Type string `json:"type"`
}

func NewHub(opts HubOptions) *Hub {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= opts.PingInterval {
		opts.PongTimeout = 2 * opts.PingInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.ReadLimitBytes <= 0 {
		opts.ReadLimitBytes = 64 * 1024
	}
	msgRate := rate.Inf
	if opts.MessagesPerSecond > 0 {
		msgRate = rate.Limit(opts.MessagesPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Hub{
		clients:      make(map[string]*hubClient),
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
		writeTimeout: opts.WriteTimeout,
		readLimit:    opts.ReadLimitBytes,
		msgRate:      msgRate,
		msgBurst:     opts.Burst,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

// SetRelay makes Broadcast also publish to other instances.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &hubClient{
		id:      uuid.NewString(),
		conn:    conn,
		limiter: rate.NewLimiter(h.msgRate, h.msgBurst),
	}
	h.register(c)
	defer h.unregister(c)

	conn.SetReadLimit(h.readLimit)
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(h.pingInterval)
	defer pingTicker.Stop()

	done := make(chan struct{})
	defer close(done)
	messageChan := make(chan []byte, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
			select {
			case messageChan <- data:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case data := <-messageChan:
			if err := h.handleMessage(c, data); err != nil {
				h.logger.Infow("error handling message from client", "client_id", c.id, "error", err)
				h.sendError(c, err.Error())
			}

		case <-pingTicker.C:
			if err := c.write(websocket.PingMessage, nil, h.writeTimeout); err != nil {
				h.logger.Infow("error sending ping", "client_id", c.id, "error", err)
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Infow("error reading message from client", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) handleMessage(c *hubClient, data []byte) error {
	if !c.limiter.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	switch msg.Type {
	case "ping":
		frame, err := stream.Encode("pong", nil, time.Now())
		if err != nil {
			return err
		}
		return c.write(websocket.TextMessage, frame, h.writeTimeout)
	case "":
		return fmt.Errorf("message type is required")
	default:
		h.logger.Debugw("ignoring client message", "client_id", c.id, "type", msg.Type)
		return nil
	}
}

func (h *Hub) sendError(c *hubClient, message string) {
	frame, err := stream.Encode(domain.KindError, map[string]interface{}{"message": message}, time.Now())
	if err != nil {
		return
	}
	c.write(websocket.TextMessage, frame, h.writeTimeout)
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetHubClients(n)
	}
	h.logger.Infow("stream client connected", "client_id", c.id, "clients", n)
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetHubClients(n)
	}
	h.logger.Infow("stream client disconnected", "client_id", c.id, "clients", n)
}

// Broadcast encodes an envelope, sends it to local clients and publishes it
// on the relay when one is set.
func (h *Hub) Broadcast(ctx context.Context, kind domain.EventKind, data interface{}) error {
	ctx, span := tracing.TraceBroadcast(ctx, string(kind), h.ClientCount())
	defer span.End()

	frame, err := stream.Encode(kind, data, time.Now().UTC())
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	if h.metrics != nil {
		h.metrics.RecordBroadcast(kind)
	}

	sendErr := h.BroadcastFrame(frame)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Publish(ctx, frame); err != nil {
			h.logger.Warnw("relay publish failed", "kind", kind, "error", err)
		}
	}

	if sendErr != nil {
		tracing.RecordError(ctx, sendErr)
	}
	return sendErr
}

// BroadcastFrame writes an encoded envelope to local clients only. Clients
// that fail the write are closed; their handler unregisters them.
func (h *Hub) BroadcastFrame(frame []byte) error {
	h.mu.RLock()
	clients := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	failed := 0
	for _, c := range clients {
		if err := c.write(websocket.TextMessage, frame, h.writeTimeout); err != nil {
			failed++
			h.logger.Infow("dropping stream client", "client_id", c.id, "error", err)
			c.conn.Close()
		}
	}

	if failed > 0 {
		return fmt.Errorf("broadcast completed with %d errors", failed)
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connected client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}

func (c *hubClient) write(messageType int, data []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(messageType, data)
}
