package services

import (
	"context"
	"encoding/json"
	"log"

	"flowpilot/internal/models"
)

// NotificationChannel is the Redis channel notification events fan out on
const NotificationChannel = "flowpilot:notifications"

// PubSubService relays notification events between server instances via
// Redis pub/sub, so a browser tab connected to one instance sees
// notifications produced by another (for example the instance whose overdue
// check fired).
type PubSubService struct {
	redis       *RedisService
	connManager *ConnectionManager
	instanceID  string
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewPubSubService creates a new pub/sub service
func NewPubSubService(redisService *RedisService, connManager *ConnectionManager, instanceID string) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:       redisService,
		connManager: connManager,
		instanceID:  instanceID,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins listening for notification events from other instances
func (s *PubSubService) Start() error {
	pubsub := s.redis.Subscribe(s.ctx, NotificationChannel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(s.ctx); err != nil {
		return err
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-s.ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event models.NotificationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("⚠️ [PUBSUB] Failed to unmarshal event: %v", err)
					continue
				}

				// Skip events published by this instance; they were already
				// broadcast locally when produced.
				if event.InstanceID == s.instanceID {
					continue
				}

				s.connManager.Broadcast(event)
			}
		}
	}()

	log.Printf("✅ [PUBSUB] Listening for notification events (instance: %s)", s.instanceID)
	return nil
}

// Publish sends a notification event to all other instances
func (s *PubSubService) Publish(ctx context.Context, event models.NotificationEvent) error {
	event.InstanceID = s.instanceID

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.redis.Publish(ctx, NotificationChannel, payload)
}

// Stop stops the pub/sub listener
func (s *PubSubService) Stop() {
	s.cancel()
}
