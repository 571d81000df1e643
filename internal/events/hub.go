// Package events streams approval and network events to websocket
// subscribers, such as the approval UI.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/approval"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	TypeApprovalPending  = "approval_pending"
	TypeApprovalResolved = "approval_resolved"
	TypeNetworkAdded     = "network_added"

	sendBuffer   = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 50 * time.Second
	maxReadBytes = 512
)

type Event struct {
	Type     string             `json:"type"`
	Approval *approval.Approval `json:"approval,omitempty"`
	Outcome  approval.Outcome   `json:"outcome,omitempty"`
	Network  *types.ChainParams `json:"network,omitempty"`
	Time     time.Time          `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected clients. A client that cannot keep up
// is disconnected rather than slowing down the publisher.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger
	now      func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and subscribes the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"remote_ip": r.RemoteAddr,
		"clients":   count,
	}).Info("Event subscriber connected")

	go h.writer(c)
	go h.reader(c)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends e to every client.
func (h *Hub) Publish(e Event) error {
	if e.Time.IsZero() {
		e.Time = h.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.removeLocked(c)
			h.logger.Warn("Dropped slow event subscriber")
		}
	}
	return nil
}

func (h *Hub) NotifyPendingApproval(a approval.Approval) error {
	return h.Publish(Event{Type: TypeApprovalPending, Approval: &a})
}

func (h *Hub) NotifyApprovalResolved(a approval.Approval, outcome approval.Outcome) error {
	return h.Publish(Event{Type: TypeApprovalResolved, Approval: &a, Outcome: outcome})
}

func (h *Hub) NotifyNetworkAdded(chain types.ChainParams) error {
	return h.Publish(Event{Type: TypeNetworkAdded, Network: &chain})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writer(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debugf("Event write failed: %v", err)
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// reader drains the connection so control frames are handled and a
// closed peer is noticed.
func (h *Hub) reader(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debugf("Event subscriber read error: %v", err)
			}
			return
		}
	}
}
