package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/util"

	"go.uber.org/zap"
)

// LeaveService manages the unavailable days of mechanics
type LeaveService struct {
	repo LeaveRepository
}

// NewLeaveService creates a leave service
func NewLeaveService(repo LeaveRepository) *LeaveService {
	return &LeaveService{repo: repo}
}

// MechanicFor resolves the mechanic record of a mechanic-role user
func (s *LeaveService) MechanicFor(ctx context.Context, profileID string) (*models.Mechanic, error) {
	return s.repo.GetMechanicByProfile(ctx, profileID)
}

// List returns the leaves of mechanicID, optionally bounded by from and to
func (s *LeaveService) List(ctx context.Context, mechanicID int64, from, to *time.Time) ([]models.MechanicUnavailableDay, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, fmt.Errorf("range end before start: %w", ErrInvalidInput)
	}
	if _, err := s.repo.GetMechanic(ctx, mechanicID); err != nil {
		return nil, err
	}
	return s.repo.ListLeaves(ctx, mechanicID, from, to)
}

// Add records a leave day. A second leave on the same date is ErrAlreadyExists.
func (s *LeaveService) Add(ctx context.Context, mechanicID int64, date time.Time, reason string) (*models.MechanicUnavailableDay, error) {
	if _, err := s.repo.GetMechanic(ctx, mechanicID); err != nil {
		return nil, err
	}

	leave := &models.MechanicUnavailableDay{
		MechanicID: mechanicID,
		Date:       date,
		Reason:     strings.TrimSpace(reason),
	}
	if err := s.repo.AddLeave(ctx, leave); err != nil {
		return nil, err
	}

	util.LoggerFrom(ctx).Info("Mechanic leave added", zap.Int64("mechanic_id", mechanicID), zap.Time("date", date))
	return leave, nil
}

// Delete removes one leave day of mechanicID
func (s *LeaveService) Delete(ctx context.Context, mechanicID, leaveID int64) error {
	return s.repo.DeleteLeave(ctx, mechanicID, leaveID)
}
