package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"floorview/internal/core/domain"
	"floorview/internal/infrastructure/stream"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubMetrics struct {
	mu         sync.Mutex
	clients    int
	broadcasts map[domain.EventKind]int
}

func (m *hubMetrics) SetHubClients(n int) {
	m.mu.Lock()
	m.clients = n
	m.mu.Unlock()
}

func (m *hubMetrics) RecordBroadcast(kind domain.EventKind) {
	m.mu.Lock()
	if m.broadcasts == nil {
		m.broadcasts = make(map[domain.EventKind]int)
	}
	m.broadcasts[kind]++
	m.mu.Unlock()
}

type capturingRelay struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *capturingRelay) Publish(ctx context.Context, frame []byte) error {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
	return nil
}

func startHub(t *testing.T, opts HubOptions) (*Hub, string) {
	t.Helper()
	hub := NewHub(opts)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) domain.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env domain.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	metrics := &hubMetrics{}
	relay := &capturingRelay{}
	hub, url := startHub(t, HubOptions{Metrics: metrics})
	hub.SetRelay(relay)

	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	err := hub.Broadcast(context.Background(), domain.KindFactoryFloor, map[string]interface{}{
		"animation": "PLACE",
		"target":    domain.BinA,
		"part_id":   "part-0001",
	})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, domain.KindFactoryFloor, env.Type)
		assert.NotEmpty(t, env.Timestamp)

		ev, err := stream.Decode(mustMarshal(t, env), time.Now())
		require.NoError(t, err)
		ff := ev.Payload.(*domain.FactoryFloorPayload)
		assert.Equal(t, domain.BinA, ff.Target)
	}

	relay.mu.Lock()
	assert.Len(t, relay.frames, 1)
	relay.mu.Unlock()

	metrics.mu.Lock()
	assert.Equal(t, 2, metrics.clients)
	assert.Equal(t, 1, metrics.broadcasts["factory_floor"])
	metrics.mu.Unlock()
}

func TestHub_AnswersPing(t *testing.T) {
	_, url := startHub(t, HubOptions{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	env := readEnvelope(t, conn)
	assert.Equal(t, domain.EventKind("pong"), env.Type)
}

func TestHub_RateLimitsClientMessages(t *testing.T) {
	_, url := startHub(t, HubOptions{MessagesPerSecond: 0.001, Burst: 1})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, domain.EventKind("pong"), readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	env := readEnvelope(t, conn)
	assert.Equal(t, domain.KindError, env.Type)
	assert.Contains(t, string(env.Data), "rate limit exceeded")
}

func TestHub_RejectsGarbage(t *testing.T) {
	_, url := startHub(t, HubOptions{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, domain.KindError, readEnvelope(t, conn).Type)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	metrics := &hubMetrics{}
	hub, url := startHub(t, HubOptions{Metrics: metrics})

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, hub.BroadcastFrame([]byte(`{"type":"status","data":{}}`)))
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
