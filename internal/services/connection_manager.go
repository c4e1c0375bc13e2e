package services

import (
	"log"
	"sync"

	"flowpilot/internal/models"
)

// ConnectionManager manages all active notification stream connections
type ConnectionManager struct {
	connections map[string]*models.ClientConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.ClientConnection),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.ClientConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	log.Printf("✅ Connection added: %s (Total: %d)", conn.ConnID, len(cm.connections))
}

// Remove removes a connection
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		close(conn.WriteChan)
		delete(cm.connections, connID)
		log.Printf("❌ Connection removed: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// Broadcast queues an event for every connected client. Clients with a full
// write queue are skipped rather than blocking the caller.
func (cm *ConnectionManager) Broadcast(event models.NotificationEvent) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, conn := range cm.connections {
		select {
		case conn.WriteChan <- event:
		default:
			log.Printf("⚠️  Dropping event for slow client %s", conn.ConnID)
		}
	}
}
