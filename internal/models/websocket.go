package models

import (
	"time"

	"github.com/gofiber/contrib/websocket"
)

// ClientConnection represents an active notification stream connection
type ClientConnection struct {
	ConnID    string
	ClientIP  string
	Conn      *websocket.Conn
	WriteChan chan NotificationEvent
	CreatedAt time.Time
}
