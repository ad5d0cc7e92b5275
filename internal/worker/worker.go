package worker

import (
	"context"

	"putik-service/internal/broker"
	"putik-service/internal/models"
	"putik-service/internal/util"

	"go.uber.org/zap"
)

// Invalidator drops cached availability snapshots
type Invalidator interface {
	InvalidateAvailability(ctx context.Context, vehicleIDs ...int64) error
}

// AvailabilityWorker keeps the availability cache in step with booking events
type AvailabilityWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        Invalidator
	logger       *zap.Logger
}

// NewAvailabilityWorker creates a new availability worker
func NewAvailabilityWorker(consumer *broker.Consumer, cache Invalidator) *AvailabilityWorker {
	w := &AvailabilityWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnBookingGroup(func(ctx context.Context, e *models.BookingGroupEvent) error {
		return w.invalidate(ctx, e.EventType, e.VehicleIDs)
	})
	w.eventHandler.OnStatusChanged(func(ctx context.Context, e *models.BookingStatusChangedEvent) error {
		return w.invalidate(ctx, e.EventType, e.VehicleIDs)
	})
	w.eventHandler.OnCatalogChanged(func(ctx context.Context, e *models.CatalogChangedEvent) error {
		return w.invalidate(ctx, e.EventType, e.VehicleIDs)
	})

	return w
}

func (w *AvailabilityWorker) invalidate(ctx context.Context, eventType string, vehicleIDs []int64) error {
	if err := w.cache.InvalidateAvailability(ctx, vehicleIDs...); err != nil {
		return err
	}
	w.logger.Debug("Availability snapshots invalidated",
		zap.String("event_type", eventType),
		zap.Int64s("vehicle_ids", vehicleIDs))
	return nil
}

// Start starts the worker
func (w *AvailabilityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting availability worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AvailabilityWorker) Stop() error {
	w.logger.Info("Stopping availability worker")
	return w.consumer.Close()
}
