package webmonitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub serves /ws and pushes STATUS and ALERT messages to every connection.
type Hub struct {
	upgrader websocket.Upgrader
	greeting func() any
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*wsClient
	closed  bool
}

// NewHub creates a hub. greeting supplies the data of the WELCOME message
// and may be nil.
func NewHub(greeting func() any, m *metrics.Metrics) *Hub {
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		greeting: greeting,
		metrics:  m,
		clients:  make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the connection and runs its pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket", "Upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:   "ws-" + uuid.NewString()[:8],
		conn: conn,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[client.id] = client
	h.metrics.WebSocketClients.Store(int64(len(h.clients)))
	h.mu.Unlock()
	logger.Info("WebSocket", "Client %s connected", client.id)

	var data any
	if h.greeting != nil {
		data = h.greeting()
	}
	if msg, err := encodeEnvelope(MessageWelcome, map[string]any{"client_id": client.id, "status": data}); err == nil {
		h.trySend(client, msg)
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		h.metrics.WebSocketClients.Store(int64(len(h.clients)))
		logger.Info("WebSocket", "Client %s disconnected", client.id)
	}
	client.close()
	h.mu.Unlock()
}

func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.remove(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket", "Read error for %s: %v", client.id, err)
			}
			return
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			msg.Type = string(data)
		}
		switch msg.Type {
		case MessagePing:
			pong, _ := encodeEnvelope(MessagePong, map[string]any{"timestamp": unixSeconds(time.Now())})
			h.trySend(client, pong)
		default:
			logger.Debug("WebSocket", "Ignoring %q from %s", msg.Type, client.id)
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues msg unless the client is gone or its buffer is full.
func (h *Hub) trySend(client *wsClient, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

// Broadcast implements Pusher.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logger.Debug("WebSocket", "Client %s is slow, dropping message", c.id)
		}
	}
}

// GetClientCount implements Pusher.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.metrics.WebSocketClients.Store(0)
}
