package service

import (
	"context"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/store"
)

// CatalogRepository is the read side of the parts catalog
type CatalogRepository interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	ListTypes(ctx context.Context) ([]models.Type, error)
	ListParts(ctx context.Context, vehicleID int64, filter models.CatalogFilter) ([]models.Part, error)
	GetPart(ctx context.Context, id int64) (*models.Part, error)
	GetPartsByIDs(ctx context.Context, ids []int64) ([]models.Part, error)
	ListMechanics(ctx context.Context) ([]models.Mechanic, error)
	ListActiveBookingsForVehicle(ctx context.Context, vehicleID int64) ([]models.Booking, error)
	ListActiveBookingsForParts(ctx context.Context, partIDs []int64) ([]models.Booking, error)
}

// BookingRepository writes and reads booking groups
type BookingRepository interface {
	CatalogRepository
	GetMechanic(ctx context.Context, id int64) (*models.Mechanic, error)
	GetMechanicByProfile(ctx context.Context, profileID string) (*models.Mechanic, error)
	ListLeavesOn(ctx context.Context, date time.Time) ([]models.MechanicUnavailableDay, error)
	ListBookingDetails(ctx context.Context, q store.BookingQuery) ([]models.BookingDetail, error)
	GetGroupBookings(ctx context.Context, groupID int64) ([]models.Booking, error)
	CreateBookingGroup(ctx context.Context, in store.ReservationInput) (*store.Reservation, error)
	ReplaceBookingGroup(ctx context.Context, groupID int64, in store.ReservationInput) (*store.Reservation, error)
	TransitionGroupStatus(ctx context.Context, groupID int64, from, to models.BookingStatus) (int64, error)
}

// LeaveRepository manages mechanic unavailable days
type LeaveRepository interface {
	GetMechanic(ctx context.Context, id int64) (*models.Mechanic, error)
	GetMechanicByProfile(ctx context.Context, profileID string) (*models.Mechanic, error)
	ListLeaves(ctx context.Context, mechanicID int64, from, to *time.Time) ([]models.MechanicUnavailableDay, error)
	AddLeave(ctx context.Context, leave *models.MechanicUnavailableDay) error
	DeleteLeave(ctx context.Context, mechanicID, leaveID int64) error
}

// AdminRepository is the write side of the catalog
type AdminRepository interface {
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
	CreateType(ctx context.Context, t *models.Type) error
	UpdateType(ctx context.Context, t *models.Type) error
	DeleteType(ctx context.Context, id int64) error
	GetPart(ctx context.Context, id int64) (*models.Part, error)
	CreatePart(ctx context.Context, p *models.Part) error
	UpdatePart(ctx context.Context, p *models.Part) error
	DeletePart(ctx context.Context, id int64) error
	CreateMechanic(ctx context.Context, m *models.Mechanic) error
	UpdateMechanic(ctx context.Context, m *models.Mechanic) error
	DeleteMechanic(ctx context.Context, id int64) error
}

// SessionStore keeps per-user cart and wizard state
type SessionStore interface {
	AddCartItem(ctx context.Context, userID string, partID int64, max int) (int, error)
	SetCartItem(ctx context.Context, userID string, partID int64, qty, max int) (int, error)
	CartItems(ctx context.Context, userID string) ([]models.CartLine, error)
	ReplaceCart(ctx context.Context, userID string, lines []models.CartLine) error
	ClearCart(ctx context.Context, userID string) error
	GetCheckout(ctx context.Context, userID string) (*models.CheckoutSession, error)
	SaveCheckout(ctx context.Context, userID string, session *models.CheckoutSession) error
	DeleteCheckout(ctx context.Context, userID string) error
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// AvailabilityCache holds short-lived per-vehicle reservation snapshots
type AvailabilityCache interface {
	CachedAvailability(ctx context.Context, vehicleID int64, dst interface{}) (bool, error)
	CacheAvailability(ctx context.Context, vehicleID int64, snapshot interface{}, ttl time.Duration) error
}

// EventPublisher emits booking domain events
type EventPublisher interface {
	PublishBookingGroupCreated(ctx context.Context, event *models.BookingGroupEvent) error
	PublishBookingGroupUpdated(ctx context.Context, event *models.BookingGroupEvent) error
	PublishBookingStatusChanged(ctx context.Context, event *models.BookingStatusChangedEvent) error
	PublishCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   models.Role
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
