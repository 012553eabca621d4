package http

import (
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// liveEvent is pushed to dashboard clients so they refetch without polling.
type liveEvent struct {
	Type      string    `json:"type"`
	Scenario  string    `json:"scenario"`
	Timestamp time.Time `json:"timestamp"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// liveHub fans scenario events out to connected WebSocket clients.
type liveHub struct {
	upgrader   websocket.Upgrader
	maxClients int
	log        *zap.Logger
	metrics    *metrics

	mu      sync.RWMutex
	clients map[*liveClient]struct{}
	closed  bool
	stop    chan struct{}
}

func newLiveHub(maxClients int, log *zap.Logger, m *metrics) *liveHub {
	if maxClients <= 0 {
		maxClients = 100
	}
	return &liveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		maxClients: maxClients,
		log:        log,
		metrics:    m,
		clients:    make(map[*liveClient]struct{}),
		stop:       make(chan struct{}),
	}
}

func (h *liveHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues ev for every client. Slow clients drop events.
func (h *liveHub) broadcast(ev liveEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
	h.metrics.liveBroadcasts.Inc()
}

func (h *liveHub) scenarioChanged(name string) {
	h.broadcast(liveEvent{Type: "scenario_changed", Scenario: name, Timestamp: time.Now().UTC()})
}

func (h *liveHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.stop)
}

func (h *liveHub) register(c *liveClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.clients) >= h.maxClients {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.liveClients.Set(float64(len(h.clients)))
	return true
}

func (h *liveHub) unregister(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	h.metrics.liveClients.Set(float64(len(h.clients)))
}

func (h *liveHub) handleWebSocket(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.clientCount() >= h.maxClients {
		writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": "maximum clients reached"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &liveClient{conn: conn, send: make(chan []byte, 16)}
	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "busy"))
		return
	}
	defer h.unregister(c)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// Reads are only needed to notice disconnects and process pongs.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		case <-h.stop:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
