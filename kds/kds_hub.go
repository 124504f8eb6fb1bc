package kds

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn   *websocket.Conn
	role   string
	userID string
	send   chan []byte
}

// Hub menampung semua koneksi websocket dan menyiarkan event order.
// Admin menerima semua event, customer hanya event order miliknya.
// Setiap client punya antrian kirim sendiri; Publish tidak pernah menunggu socket.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// RegisterClient -> menambahkan connection dengan identitasnya
func (h *Hub) RegisterClient(conn *websocket.Conn, actor models.Actor) {
	c := &client{
		conn:   conn,
		role:   actor.Role,
		userID: actor.UserID,
		send:   make(chan []byte, sendBuffer),
	}
	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()
	go h.writePump(c)
}

// UnregisterClient -> melepaskan connection, writePump yang menutupnya
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if c, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(c.send)
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish implements the order event publisher.
func (h *Hub) Publish(_ context.Context, evt models.OrderEvent) {
	h.broadcast(Message{Event: evt.EventType, Data: evt}, evt.UserID)
}

func (h *Hub) broadcast(msg Message, ownerID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		if c.role != models.RoleAdmin && c.userID != ownerID {
			continue
		}
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.Warnf("Dropping slow websocket client (%s)", c.role)
			h.removeLocked(conn)
		}
	}
}

// writePump is the only writer of a connection.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Warnf("Dropping websocket client (%s): %v", c.role, err)
			h.UnregisterClient(c.conn)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
