package worker

import (
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/events"
)

const forwardTimeout = 2 * time.Second

// StartEventForwarder relays every domain event to publisher. A nil publisher
// leaves fan-out disabled.
func StartEventForwarder(dispatcher events.Dispatcher, publisher events.Publisher, logger *zap.Logger) {
	if dispatcher == nil || publisher == nil {
		return
	}
	forwarder := events.NewRedisForwarder(publisher, forwardTimeout)
	events.SubscribeAll(dispatcher, forwarder.Handle)
	logger.Info("event forwarding enabled", zap.Int("event_types", len(events.AllEventTypes)))
}
