package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/amterp/sitegate/internal/render"
	"github.com/gorilla/websocket"
)

// Message types sent to viewers.
const (
	MessageConnected = "connected"
	MessageReload    = "reload"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Documents are served from this host; viewers are local
	},
}

// WebSocketHub tracks open viewers and tells them when to reload.
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[*WebSocketClient]bool
	closed  bool
}

// WebSocketClient represents a connected viewer.
type WebSocketClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
}

// WebSocketMessage is the JSON message sent to viewers.
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ReloadData tells a viewer where the replacement document lives.
type ReloadData struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewWebSocketHub creates a new WebSocket hub.
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*WebSocketClient]bool),
	}
}

// OnReload announces a newly published document.
func (h *WebSocketHub) OnReload(doc *render.Document) {
	h.Broadcast(MessageReload, ReloadData{ID: doc.ID, URL: DocumentURL(doc.ID)})
}

// Broadcast sends a typed message to every connected viewer.
func (h *WebSocketHub) Broadcast(msgType string, data any) {
	payload, err := json.Marshal(WebSocketMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", msgType, err)
		return
	}

	h.mu.RLock()
	clients := make([]*WebSocketClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.trySend(client, payload)
	}
}

// trySend attempts to send data to a client, handling the case where
// the client's channel was closed between snapshot and send.
func (h *WebSocketHub) trySend(client *WebSocketClient, data []byte) {
	defer func() {
		// Channel was closed by removeClient
		recover()
	}()

	select {
	case client.send <- data:
	default:
		// Slow viewer; drop it rather than block the broadcast
		h.removeClient(client)
	}
}

func (h *WebSocketHub) addClient(client *WebSocketClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = true
	return true
}

func (h *WebSocketHub) removeClient(client *WebSocketClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// Close disconnects every viewer and refuses new ones.
func (h *WebSocketHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// ServeWS handles WebSocket connection requests.
func (h *WebSocketHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &WebSocketClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
	}

	// Queue the greeting before the pumps start so it is always the first frame
	if data, err := json.Marshal(WebSocketMessage{
		Type: MessageConnected,
		Data: map[string]string{"message": "Live reload enabled"},
	}); err == nil {
		client.send <- data
	}

	if !h.addClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection to detect disconnects; viewers never send.
func (c *WebSocketClient) readPump() {
	defer c.hub.removeClient(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

// writePump writes queued messages, one frame each, and keeps the connection alive.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected viewers.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
