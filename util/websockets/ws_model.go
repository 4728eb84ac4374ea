package websockets

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Event types
const (
	EventReportCreated = "report.created"
	EventReportDeleted = "report.deleted"
	EventReportStatus  = "report.status"
)

// Event is pushed to every feed subscriber.
type Event struct {
	Type   string      `json:"type"`
	ID     string      `json:"id,omitempty"`
	Report interface{} `json:"report,omitempty"`
}

// Client represents a connected feed subscriber
type Client struct {
	Conn   *websocket.Conn
	send   chan []byte
	closed sync.Once
}

type WebSocketManager struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
}
