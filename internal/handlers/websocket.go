package handlers

import (
	"log"
	"time"

	"flowpilot/internal/models"
	"flowpilot/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WebSocketHandler streams notification events to connected clients
type WebSocketHandler struct {
	connManager *services.ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(connManager *services.ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connManager: connManager}
}

// Handle serves a notification stream connection. The connection is
// write-mostly: the client receives events and only sends pongs (or closes).
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	clientIP, _ := c.Locals("client_ip").(string)

	clientConn := &models.ClientConnection{
		ConnID:    connID,
		ClientIP:  clientIP,
		Conn:      c,
		WriteChan: make(chan models.NotificationEvent, 64),
		CreatedAt: time.Now(),
	}

	h.connManager.Add(clientConn)
	log.Printf("🔌 [WS] Client connected: %s (ip: %s)", connID, clientIP)

	done := make(chan struct{})
	go h.writePump(clientConn, done)

	// Read loop: we ignore client payloads but need the reads to detect
	// disconnects and process control frames.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.connManager.Remove(connID)
	log.Printf("🔌 [WS] Client disconnected: %s", connID)
}

// writePump serializes all writes for one connection
func (h *WebSocketHandler) writePump(conn *models.ClientConnection, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-conn.WriteChan:
			if !ok {
				return
			}
			conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.Conn.WriteJSON(event); err != nil {
				log.Printf("⚠️  [WS] Write failed for %s: %v", conn.ConnID, err)
				return
			}
		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
