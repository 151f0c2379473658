package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/utils"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Per-connection buffered send queue
	sendBufferSize = 64
)

// Client is one open subscription socket. It starts anonymous and keeps
// a single identity for its whole lifetime once the client subscribes.
type Client struct {
	ID     string
	UserID string // empty until the subscribe message arrives
	Role   string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub is the subscription gateway: it owns every open client connection
// and relays dispatcher pushes to the right socket. Pushes are
// fire-and-forget; a push to a closed or saturated connection is dropped,
// never surfaced as an error.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*Client // connection ID -> client
	registry *PresenceRegistry
	logger   *utils.Logger
}

func NewHub(registry *PresenceRegistry, logger *utils.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		registry: registry,
		logger:   logger,
	}
}

// HandleConnection runs a client connection until the transport closes.
// It must be called from the HTTP handler goroutine that performed the
// websocket upgrade.
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	client := &Client{
		ID:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.logger.Debug("Client connected", "conn_id", client.ID)

	go client.writePump()
	client.readPump()
}

// remove tears down a client after its transport closed. An identified
// client is unregistered from the presence registry.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
	}
	userID := client.UserID
	h.mu.Unlock()

	if !ok {
		return
	}

	close(client.send)
	if userID != "" {
		h.registry.Unregister(userID, client.ID)
	}

	h.logger.Debug("Client disconnected", "conn_id", client.ID, "user_id", userID)
}

// identify transitions a client from anonymous to identified. A second
// subscribe message on the same connection is ignored.
func (h *Hub) identify(client *Client, userID, role string) {
	h.mu.Lock()
	if client.UserID != "" || userID == "" {
		h.mu.Unlock()
		return
	}
	client.UserID = userID
	client.Role = role
	h.mu.Unlock()

	h.registry.Register(userID, client.ID)

	h.logger.Info("Client subscribed", "conn_id", client.ID, "user_id", userID, "role", role)
}

// PushToConnection queues a frame for one connection. Unknown connection
// IDs and saturated send queues are silently dropped: delivery is a hint,
// the durable store is the guarantee.
func (h *Hub) PushToConnection(connID string, payload []byte) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	h.mu.Unlock()

	if !ok {
		return
	}
	client.enqueue(payload)
}

// PushToAll queues a frame for every open connection, identified or not
func (h *Hub) PushToAll(payload []byte) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.enqueue(payload)
	}
}

// ClientCount returns the number of open connections
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (c *Client) enqueue(payload []byte) {
	defer func() {
		// The send channel may close between lookup and enqueue
		_ = recover()
	}()

	select {
	case c.send <- payload:
	default:
		c.hub.logger.Debug("Dropping push to slow connection", "conn_id", c.ID)
	}
}

// readPump reads inbound frames until the transport closes. The only
// recognized inbound frame is the subscribe message.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Unexpected close", "conn_id", c.ID, "error", err)
			}
			return
		}

		var msg models.SocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("Ignoring malformed frame", "conn_id", c.ID, "error", err)
			continue
		}

		if msg.Event == models.SocketEventSubscribe {
			var payload models.SubscribePayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				c.hub.logger.Debug("Ignoring malformed subscribe", "conn_id", c.ID, "error", err)
				continue
			}
			c.hub.identify(c, payload.UserID, payload.Role)
		}
	}
}

// writePump writes queued frames and keepalive pings to the peer
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
