package broker

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// EventPublisher handles publishing checkout events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Events of one user share a key so they stay ordered on a partition.
func userKey(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event.EventType, event)
}

// PublishCheckoutPartialFailure publishes CheckoutPartialFailure event
func (ep *EventPublisher) PublishCheckoutPartialFailure(ctx context.Context, event *models.CheckoutPartialFailureEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event.EventType, event)
}

// PublishCheckoutFailed publishes CheckoutFailed event
func (ep *EventPublisher) PublishCheckoutFailed(ctx context.Context, event *models.CheckoutFailedEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event.EventType, event)
}
