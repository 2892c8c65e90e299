// Package websocket pushes post events to connected browsers. Clients may
// narrow the feed to topics with a subscribe message.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"blogapi/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 512
	sendBuffer = 256
)

// Event is the frame written to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type outbound struct {
	topic string
	msg   []byte
}

type direct struct {
	client *Client
	msg    []byte
}

type Manager struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	reply      chan direct
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	manager *Manager

	mu     sync.RWMutex
	topics []string
}

// NewManager builds a hub. An empty origins list, or one containing "*",
// accepts any Origin header.
func NewManager(origins []string, log *slog.Logger) *Manager {
	m := &Manager{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 64),
		reply:      make(chan direct, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return m
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || allowed[origin]
	}
}

// Start runs the hub until ctx is cancelled, then closes every client. Only
// this goroutine sends on or closes a client's send channel.
func (m *Manager) Start(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.mu.Unlock()
			m.log.Info("[ws] hub stopped")
			return

		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			n := len(m.clients)
			m.mu.Unlock()
			m.log.Debug("[ws] client registered", "clients", n)

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
			n := len(m.clients)
			m.mu.Unlock()
			m.log.Debug("[ws] client unregistered", "clients", n)

		case d := <-m.reply:
			m.mu.Lock()
			if m.clients[d.client] {
				select {
				case d.client.send <- d.msg:
				default:
					close(d.client.send)
					delete(m.clients, d.client)
				}
			}
			m.mu.Unlock()

		case out := <-m.broadcast:
			m.mu.Lock()
			for client := range m.clients {
				if !client.wants(out.topic) {
					continue
				}
				select {
				case client.send <- out.msg:
				default:
					// slow consumer
					close(client.send)
					delete(m.clients, client)
				}
			}
			m.mu.Unlock()
		}
	}
}

// BroadcastPostEvent queues a post event for every interested client. It
// never blocks the caller; when the queue is full the event is dropped.
func (m *Manager) BroadcastPostEvent(kind string, post models.Post) {
	msg, err := json.Marshal(Event{Type: kind, Payload: post})
	if err != nil {
		m.log.Error("[ws] marshal event", "type", kind, "error", err)
		return
	}
	select {
	case m.broadcast <- outbound{topic: post.Topic, msg: msg}:
	case <-m.done:
	default:
		m.log.Warn("[ws] broadcast queue full, event dropped", "type", kind, "postId", post.ID.Hex())
	}
}

func (m *Manager) ConnectedClients() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Handler upgrades the request and attaches the connection to the hub.
func (m *Manager) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.log.Warn("[ws] upgrade failed", "error", err)
			return
		}

		client := &Client{conn: conn, send: make(chan []byte, sendBuffer), manager: m}
		select {
		case m.register <- client:
		case <-m.done:
			conn.Close()
			return
		}

		client.push(Event{Type: "connected", Payload: map[string]any{"time": time.Now().Unix()}})

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.topics) == 0 {
		return true
	}
	topic = strings.ToLower(topic)
	for _, t := range c.topics {
		if strings.Contains(topic, t) {
			return true
		}
	}
	return false
}

// push queues a reply for this client only. Delivery goes through the hub,
// which drops it if the client is already gone.
func (c *Client) push(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.manager.reply <- direct{client: c, msg: msg}:
	case <-c.manager.done:
	}
}

type inbound struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.log.Warn("[ws] read error", "error", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		switch in.Type {
		case "subscribe":
			c.subscribe(in.Topics)
		case "ping":
			c.push(Event{Type: "pong", Payload: map[string]any{"time": time.Now().Unix()}})
		}
	}
}

func (c *Client) subscribe(topics []string) {
	var clean []string
	for _, t := range topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			clean = append(clean, t)
		}
	}
	c.mu.Lock()
	c.topics = clean
	c.mu.Unlock()
	c.push(Event{Type: "subscribed", Payload: map[string]any{"topics": clean}})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
