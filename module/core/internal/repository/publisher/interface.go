package publisher

import (
	"context"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
)

// AlertPublisher hands a rendered notification to the external messaging
// channel. Failures are reported, never absorbed; the dispatcher decides
// what they mean for the event's delivery status.
type AlertPublisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}
