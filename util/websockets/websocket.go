// Package websockets fans report events out to live feed subscribers. The feed
// is a side channel: publishing never blocks the request that triggered it.
package websockets

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 16
	broadcastQueue = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketManager initializes a WebSocketManager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run dispatches events until ctx is cancelled, then disconnects every client.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			manager.mu.Lock()
			for client := range manager.clients {
				delete(manager.clients, client)
				client.close()
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client] = struct{}{}
			manager.mu.Unlock()

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[client]; ok {
				delete(manager.clients, client)
				client.close()
			}
			manager.mu.Unlock()

		case message := <-manager.broadcast:
			manager.mu.Lock()
			for client := range manager.clients {
				select {
				case client.send <- message:
				default:
					// slow subscriber
					delete(manager.clients, client)
					client.close()
				}
			}
			manager.mu.Unlock()
		}
	}
}

// Publish queues an event for every subscriber. It drops the event when the
// queue is full or the manager has stopped.
func (manager *WebSocketManager) Publish(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		logger.Log.WithError(err).Warn("feed: marshal event")
		return
	}
	select {
	case manager.broadcast <- msg:
	case <-manager.done:
	default:
		logger.Log.WithField("type", event.Type).Warn("feed: queue full, dropping event")
	}
}

// Subscribers returns the number of connected clients.
func (manager *WebSocketManager) Subscribers() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.clients)
}

// HandleConnections upgrades HTTP requests to WebSocket connections
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("feed: websocket upgrade")
		return
	}

	client := &Client{Conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()

	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

func (c *Client) close() {
	c.closed.Do(func() { close(c.send) })
}

// readPump drains control frames. Subscribers never send data.
func (c *Client) readPump() {
	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
