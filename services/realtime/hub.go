package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // auth is done with the JWT
}

type client struct {
	conn   *websocket.Conn
	userID string
	topics map[string]struct{}
	send   chan []byte
	once   sync.Once
}

func (c *client) subscribed(topic string) bool {
	_, ok := c.topics[topic]
	return ok
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans notifications out to the websocket clients subscribed to their topic.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  core.Logger
}

var _ core.Notifier = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Topics keeps the requested topics a user may listen to and adds their own user topic.
// Other users' topics are dropped.
func Topics(userID string, requested []string) []string {
	own := core.UserTopic(userID)
	topics := []string{own}
	seen := map[string]bool{own: true}
	for _, t := range requested {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] || strings.HasPrefix(t, core.UserTopic("")) {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish never blocks: a client that cannot keep up is disconnected.
func (h *Hub) Publish(_ context.Context, n core.Notification) {
	msg, err := json.Marshal(n)
	if err != nil {
		h.logger.Error(fmt.Sprintf("marshalling notification: %v", err), err, map[string]interface{}{"kind": n.Kind})
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if !c.subscribed(n.Topic) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", map[string]interface{}{"user": c.userID})
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Serve upgrades the request and streams notifications of `topics` until the client leaves.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, topics []string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	c := &client{
		conn:   conn,
		userID: userID,
		topics: make(map[string]struct{}, len(topics)),
		send:   make(chan []byte, sendBuffer),
	}
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// readPump only handles control frames; clients do not send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var result *multierror.Error
	for c := range h.clients {
		delete(h.clients, c)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && err != websocket.ErrCloseSent {
			result = multierror.Append(result, errors.Wrapf(err, "closing websocket of user %s", c.userID))
		}
		c.close()
	}
	return result.ErrorOrNil()
}
