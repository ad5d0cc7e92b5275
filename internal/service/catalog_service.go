package service

import (
	"context"
	"fmt"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PartView is a catalog part joined with its live availability
type PartView struct {
	models.Part
	BookedQuantity      int `json:"booked_quantity"`
	AvailableQuantity   int `json:"available_quantity"`
	EditBookingQuantity int `json:"edit_booking_quantity"`
	Remaining           int `json:"remaining"`
}

// CatalogService serves the storefront reads
type CatalogService struct {
	repo     CatalogRepository
	cache    AvailabilityCache
	cacheTTL time.Duration
}

// NewCatalogService creates a catalog service. cache may be nil.
func NewCatalogService(repo CatalogRepository, cache AvailabilityCache, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// ListVehicles returns every vehicle
func (s *CatalogService) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load vehicles: %w", err)
	}
	return vehicles, nil
}

// GetVehicle returns one vehicle
func (s *CatalogService) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

// ListTypes returns every part type
func (s *CatalogService) ListTypes(ctx context.Context) ([]models.Type, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load types: %w", err)
	}
	return types, nil
}

// ListMechanics returns every mechanic
func (s *CatalogService) ListMechanics(ctx context.Context) ([]models.Mechanic, error) {
	mechanics, err := s.repo.ListMechanics(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load mechanics: %w", err)
	}
	return mechanics, nil
}

// ListParts returns the parts of a vehicle matching filter, with availability.
// editGroupID credits back the reservation of a group being edited.
func (s *CatalogService) ListParts(ctx context.Context, vehicleID int64, filter models.CatalogFilter, editGroupID *int64) (views []PartView, err error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListParts", attribute.Int64("vehicle_id", vehicleID))
	defer func() { util.EndSpan(span, err) }()

	if _, err := s.repo.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	parts, err := s.repo.ListParts(ctx, vehicleID, filter)
	if err != nil {
		return nil, fmt.Errorf("unable to load parts: %w", err)
	}

	bookings, err := s.vehicleBookings(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("unable to load bookings: %w", err)
	}

	availability := ComputeAvailability(parts, bookings, editGroupID)
	views = make([]PartView, 0, len(parts))
	for _, p := range parts {
		a := availability[p.ID]
		views = append(views, PartView{
			Part:                p,
			BookedQuantity:      a.BookedQuantity,
			AvailableQuantity:   a.AvailableQuantity,
			EditBookingQuantity: a.EditBookingQuantity,
			Remaining:           a.Remaining(),
		})
	}
	return views, nil
}

// PartAvailability returns the availability of parts straight from the
// database. Cart limits use it so a stale snapshot never raises a limit.
func (s *CatalogService) PartAvailability(ctx context.Context, parts []models.Part, editGroupID *int64) (map[int64]Availability, error) {
	ids := make([]int64, len(parts))
	for i, p := range parts {
		ids[i] = p.ID
	}

	bookings, err := s.repo.ListActiveBookingsForParts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("unable to load bookings: %w", err)
	}
	return ComputeAvailability(parts, bookings, editGroupID), nil
}

// vehicleBookings reads the active bookings of a vehicle through the cache.
// Any cache failure falls back to the database.
func (s *CatalogService) vehicleBookings(ctx context.Context, vehicleID int64) ([]models.Booking, error) {
	if s.cache != nil {
		var cached []models.Booking
		hit, err := s.cache.CachedAvailability(ctx, vehicleID, &cached)
		switch {
		case err != nil:
			util.AvailabilityCacheTotal.WithLabelValues("error").Inc()
			util.LoggerFrom(ctx).Warn("Availability cache read failed", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
		case hit:
			util.AvailabilityCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			util.AvailabilityCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	bookings, err := s.repo.ListActiveBookingsForVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheAvailability(ctx, vehicleID, bookings, s.cacheTTL); err != nil {
			util.LoggerFrom(ctx).Warn("Availability cache write failed", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
		}
	}
	return bookings, nil
}
