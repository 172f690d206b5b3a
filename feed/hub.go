// Package feed fans committed order changes out to websocket clients.
package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
)

const (
	writeWait = 5 * time.Second

	// sendBuffer is how many messages a client may fall behind before it is
	// dropped.
	sendBuffer = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	userID uint
	role   string
	send   chan []byte
}

// Hub holds the connected feed clients. Each client has its own writer
// goroutine, so Publish never waits on a socket. The zero value is not
// usable; use NewHub.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// Register adds conn to the broadcast set and starts its writer.
func (h *Hub) Register(conn *websocket.Conn, user *models.User) {
	c := &client{userID: user.ID, role: user.Role, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[conn] = c
	n := len(h.clients)
	h.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"clients": n,
	}).Info("feed client connected")

	go h.writePump(conn, c)
}

// Unregister removes conn and closes it. Safe to call more than once.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	if c, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(c.send)
		utils.InfoLogger.WithField("user_id", c.userID).Info("feed client disconnected")
	}
	conn.Close()
}

// writePump is the only goroutine that writes data frames to conn.
func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	for data := range c.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithField("user_id", c.userID).Warnf("feed: dropping client: %v", err)
			h.Unregister(conn)
			return
		}
	}
}

// Clients reports how many connections are registered.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues an order event for every client.
func (h *Hub) Publish(event string, order models.Order) {
	h.Broadcast(Message{Event: event, Data: order})
}

// Broadcast queues msg without blocking. A client whose queue is full is
// dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithField("event", msg.Event).Errorf("feed: marshal message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, c := range h.clients {
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.WithFields(logrus.Fields{
				"user_id": c.userID,
				"event":   msg.Event,
			}).Warn("feed: client too slow, dropping")
			h.remove(conn)
		}
	}
}
