package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminService is the catalog back office
type AdminService struct {
	repo      AdminRepository
	publisher EventPublisher
}

// NewAdminService creates an admin service
func NewAdminService(repo AdminRepository, publisher EventPublisher) *AdminService {
	return &AdminService{repo: repo, publisher: publisher}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required: %w", field, ErrInvalidInput)
	}
	return nil
}

// CreateVehicle adds a vehicle
func (s *AdminService) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	if err := required("name", v.Name); err != nil {
		return err
	}
	return s.repo.CreateVehicle(ctx, v)
}

// UpdateVehicle overwrites a vehicle
func (s *AdminService) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	if err := required("name", v.Name); err != nil {
		return err
	}
	return s.repo.UpdateVehicle(ctx, v)
}

// DeleteVehicle removes a vehicle with its parts
func (s *AdminService) DeleteVehicle(ctx context.Context, id int64) error {
	if err := s.repo.DeleteVehicle(ctx, id); err != nil {
		return err
	}
	s.catalogChanged(ctx, id)
	return nil
}

// CreateType adds a part type
func (s *AdminService) CreateType(ctx context.Context, t *models.Type) error {
	if err := required("name", t.Name); err != nil {
		return err
	}
	t.Name = strings.TrimSpace(t.Name)
	return s.repo.CreateType(ctx, t)
}

// UpdateType renames a part type
func (s *AdminService) UpdateType(ctx context.Context, t *models.Type) error {
	if err := required("name", t.Name); err != nil {
		return err
	}
	t.Name = strings.TrimSpace(t.Name)
	return s.repo.UpdateType(ctx, t)
}

// DeleteType removes an unused part type
func (s *AdminService) DeleteType(ctx context.Context, id int64) error {
	return s.repo.DeleteType(ctx, id)
}

func validatePart(p *models.Part) error {
	if err := required("name", p.Name); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", ErrInvalidInput)
	}
	if p.VehicleID == 0 || p.TypeID == 0 {
		return fmt.Errorf("vehicle_id and type_id are required: %w", ErrInvalidInput)
	}
	return nil
}

// CreatePart adds a part to a vehicle
func (s *AdminService) CreatePart(ctx context.Context, p *models.Part) error {
	if err := validatePart(p); err != nil {
		return err
	}
	if _, err := s.repo.GetVehicle(ctx, p.VehicleID); err != nil {
		return err
	}
	if err := s.repo.CreatePart(ctx, p); err != nil {
		return err
	}
	s.catalogChanged(ctx, p.VehicleID)
	return nil
}

// UpdatePart overwrites a part. Stock may drop below active reservations;
// availability then reads negative until bookings finish.
func (s *AdminService) UpdatePart(ctx context.Context, p *models.Part) error {
	if err := validatePart(p); err != nil {
		return err
	}
	before, err := s.repo.GetPart(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePart(ctx, p); err != nil {
		return err
	}
	s.catalogChanged(ctx, before.VehicleID, p.VehicleID)
	return nil
}

// DeletePart removes a part that no booking references
func (s *AdminService) DeletePart(ctx context.Context, id int64) error {
	part, err := s.repo.GetPart(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePart(ctx, id); err != nil {
		return err
	}
	s.catalogChanged(ctx, part.VehicleID)
	return nil
}

// CreateMechanic adds a mechanic
func (s *AdminService) CreateMechanic(ctx context.Context, m *models.Mechanic) error {
	if err := required("name", m.Name); err != nil {
		return err
	}
	return s.repo.CreateMechanic(ctx, m)
}

// UpdateMechanic overwrites a mechanic
func (s *AdminService) UpdateMechanic(ctx context.Context, m *models.Mechanic) error {
	if err := required("name", m.Name); err != nil {
		return err
	}
	return s.repo.UpdateMechanic(ctx, m)
}

// DeleteMechanic removes a mechanic without bookings
func (s *AdminService) DeleteMechanic(ctx context.Context, id int64) error {
	return s.repo.DeleteMechanic(ctx, id)
}

func (s *AdminService) catalogChanged(ctx context.Context, vehicleIDs ...int64) {
	util.LoggerFrom(ctx).Info("Catalog changed", zap.Int64s("vehicle_ids", vehicleIDs))
	if s.publisher == nil {
		return
	}

	event := &models.CatalogChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCatalogChanged,
			Timestamp: time.Now(),
		},
		VehicleIDs: vehicleIDs,
	}
	if err := s.publisher.PublishCatalogChanged(ctx, event); err != nil {
		util.LoggerFrom(ctx).Error("Failed to publish catalog change", zap.Error(err))
	}
}
