package models

import "time"

// Event types
const (
	EventTypeBookingGroupCreated  = "BOOKING_GROUP_CREATED"
	EventTypeBookingGroupUpdated  = "BOOKING_GROUP_UPDATED"
	EventTypeBookingStatusChanged = "BOOKING_STATUS_CHANGED"
	EventTypeCatalogChanged       = "CATALOG_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingGroupEvent is published when a group is created or replaced
type BookingGroupEvent struct {
	BaseEvent
	BookingGroupID int64             `json:"booking_group_id"`
	UserID         string            `json:"user_id"`
	MechanicID     int64             `json:"mechanic_id"`
	Date           time.Time         `json:"date"`
	VehicleIDs     []int64           `json:"vehicle_ids"`
	Items          []BookingItemData `json:"items"`
}

// BookingStatusChangedEvent is published after a bulk status transition
type BookingStatusChangedEvent struct {
	BaseEvent
	BookingGroupID int64         `json:"booking_group_id"`
	From           BookingStatus `json:"from"`
	To             BookingStatus `json:"to"`
	ActorID        string        `json:"actor_id"`
	VehicleIDs     []int64       `json:"vehicle_ids"`
}

// CatalogChangedEvent is published when admin edits touch part stock
type CatalogChangedEvent struct {
	BaseEvent
	VehicleIDs []int64 `json:"vehicle_ids"`
}

// BookingItemData represents one booking line in events
type BookingItemData struct {
	PartID   int64 `json:"part_id"`
	Quantity int   `json:"quantity"`
}
