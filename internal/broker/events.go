package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"putik-service/internal/models"
	"putik-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the sink EventPublisher writes to
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func groupKey(groupID int64) string {
	return fmt.Sprintf("booking-group-%d", groupID)
}

// PublishBookingGroupCreated publishes BookingGroupCreated event
func (ep *EventPublisher) PublishBookingGroupCreated(ctx context.Context, event *models.BookingGroupEvent) error {
	return ep.producer.PublishEvent(ctx, groupKey(event.BookingGroupID), event)
}

// PublishBookingGroupUpdated publishes BookingGroupUpdated event
func (ep *EventPublisher) PublishBookingGroupUpdated(ctx context.Context, event *models.BookingGroupEvent) error {
	return ep.producer.PublishEvent(ctx, groupKey(event.BookingGroupID), event)
}

// PublishBookingStatusChanged publishes BookingStatusChanged event
func (ep *EventPublisher) PublishBookingStatusChanged(ctx context.Context, event *models.BookingStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, groupKey(event.BookingGroupID), event)
}

// PublishCatalogChanged publishes CatalogChanged event
func (ep *EventPublisher) PublishCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "catalog", event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onBookingGroup  func(context.Context, *models.BookingGroupEvent) error
	onStatusChanged func(context.Context, *models.BookingStatusChangedEvent) error
	onCatalog       func(context.Context, *models.CatalogChangedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnBookingGroup registers a handler for group created and updated events
func (eh *EventHandler) OnBookingGroup(handler func(context.Context, *models.BookingGroupEvent) error) {
	eh.onBookingGroup = handler
}

// OnStatusChanged registers a handler for BookingStatusChanged events
func (eh *EventHandler) OnStatusChanged(handler func(context.Context, *models.BookingStatusChangedEvent) error) {
	eh.onStatusChanged = handler
}

// OnCatalogChanged registers a handler for CatalogChanged events
func (eh *EventHandler) OnCatalogChanged(handler func(context.Context, *models.CatalogChangedEvent) error) {
	eh.onCatalog = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeBookingGroupCreated, models.EventTypeBookingGroupUpdated:
		if eh.onBookingGroup != nil {
			var event models.BookingGroupEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onBookingGroup(ctx, &event)
		}

	case models.EventTypeBookingStatusChanged:
		if eh.onStatusChanged != nil {
			var event models.BookingStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingStatusChanged event: %w", err)
			}
			return eh.onStatusChanged(ctx, &event)
		}

	case models.EventTypeCatalogChanged:
		if eh.onCatalog != nil {
			var event models.CatalogChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CatalogChanged event: %w", err)
			}
			return eh.onCatalog(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
