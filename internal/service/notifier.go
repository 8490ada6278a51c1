package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"example.com/freightlink/services/marketplace/internal/messagebus"
)

// busNotifier publishes notification requests onto the message bus for the
// notification service to fan out.
type busNotifier struct {
	bus   messagebus.Client
	queue string
}

// NewBusNotifier creates a Notifier backed by the message bus
func NewBusNotifier(bus messagebus.Client, queue string) Notifier {
	return &busNotifier{bus: bus, queue: queue}
}

func (n *busNotifier) Notify(ctx context.Context, userIDs []string, notifType, title, message string, metadata map[string]interface{}) error {
	payload := map[string]interface{}{
		"id":         uuid.New().String(),
		"user_ids":   userIDs,
		"type":       notifType,
		"title":      title,
		"message":    message,
		"metadata":   metadata,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	return n.bus.PublishMessage(ctx, payload, n.queue)
}
