// Package webhooks notifies an external endpoint when a tour is generated.
package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Delivery is one queued notification.
type Delivery struct {
	ID        string
	EventType string
	Payload   []byte
	Attempts  int
}

// Publisher queues notifications for the Worker. A nil *Publisher drops
// everything, so callers need no URL check.
type Publisher struct {
	queue  chan Delivery
	logger zerolog.Logger
}

func NewPublisher(size int, logger zerolog.Logger) *Publisher {
	if size <= 0 {
		size = 64
	}
	return &Publisher{queue: make(chan Delivery, size), logger: logger}
}

// Emit enqueues eventType with data. A full queue drops the event.
func (p *Publisher) Emit(eventType string, data any) {
	if p == nil {
		return
	}
	id := "evt_" + uuid.NewString()
	body, err := json.Marshal(map[string]any{
		"id":   id,
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("type", eventType).Msg("encode webhook payload")
		return
	}
	select {
	case p.queue <- Delivery{ID: id, EventType: eventType, Payload: body}:
	default:
		p.logger.Warn().Str("id", id).Str("type", eventType).Msg("webhook queue full; dropping event")
	}
}

// Next blocks until a delivery is queued or ctx is done.
func (p *Publisher) Next(ctx context.Context) (Delivery, bool) {
	select {
	case <-ctx.Done():
		return Delivery{}, false
	case d := <-p.queue:
		return d, true
	}
}
