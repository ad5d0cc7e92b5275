package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/store"
	"putik-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Action is a bulk status change applied to every row of a group
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

type transition struct {
	from, to models.BookingStatus
	// customer actions are open to the group owner, the rest to its mechanic
	customer bool
}

var transitions = map[Action]transition{
	ActionAccept:   {from: models.BookingStatusPending, to: models.BookingStatusAccepted},
	ActionReject:   {from: models.BookingStatusPending, to: models.BookingStatusRejected},
	ActionStart:    {from: models.BookingStatusAccepted, to: models.BookingStatusInProgress},
	ActionComplete: {from: models.BookingStatusInProgress, to: models.BookingStatusCompleted},
	ActionCancel:   {from: models.BookingStatusPending, to: models.BookingStatusCancelled, customer: true},
}

// ParseAction validates an action name
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := transitions[a]; !ok {
		return "", fmt.Errorf("%q: %w", raw, ErrUnknownAction)
	}
	return a, nil
}

// BookingService lists booking groups and moves them through their lifecycle
type BookingService struct {
	repo      BookingRepository
	publisher EventPublisher
}

// NewBookingService creates a booking service
func NewBookingService(repo BookingRepository, publisher EventPublisher) *BookingService {
	return &BookingService{
		repo:      repo,
		publisher: publisher,
	}
}

// ListForCustomer returns the groups a user booked
func (s *BookingService) ListForCustomer(ctx context.Context, userID string, status *models.BookingStatus) ([]GroupSummary, error) {
	return s.list(ctx, store.BookingQuery{UserID: userID}, status)
}

// ListForMechanic returns the groups assigned to the mechanic record of profileID
func (s *BookingService) ListForMechanic(ctx context.Context, profileID string, status *models.BookingStatus) ([]GroupSummary, error) {
	mechanic, err := s.repo.GetMechanicByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, store.BookingQuery{MechanicID: mechanic.ID}, status)
}

// ListAll returns every group
func (s *BookingService) ListAll(ctx context.Context, status *models.BookingStatus) ([]GroupSummary, error) {
	return s.list(ctx, store.BookingQuery{}, status)
}

func (s *BookingService) list(ctx context.Context, q store.BookingQuery, status *models.BookingStatus) (groups []GroupSummary, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.list")
	defer func() { util.EndSpan(span, err) }()

	rows, err := s.repo.ListBookingDetails(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("unable to load bookings: %w", err)
	}

	groups = GroupBookings(rows)
	if status != nil {
		groups = FilterGroups(groups, *status)
	}
	return groups, nil
}

// GetGroup returns one group if actor may see it
func (s *BookingService) GetGroup(ctx context.Context, actor Actor, groupID int64) (*GroupSummary, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() || group.Customer.ID == actor.UserID {
		return group, nil
	}
	if actor.Role == models.RoleMechanic {
		ok, err := s.assignedTo(ctx, actor, group.Mechanic.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return group, nil
		}
	}
	return nil, fmt.Errorf("booking group %d: %w", groupID, ErrForbidden)
}

// Transition applies action to every row of a group. All rows must be in
// the action's source status.
func (s *BookingService) Transition(ctx context.Context, actor Actor, groupID int64, action Action) (summary *GroupSummary, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Transition",
		attribute.Int64("booking_group_id", groupID),
		attribute.String("action", string(action)))
	defer func() { util.EndSpan(span, err) }()

	t, ok := transitions[action]
	if !ok {
		return nil, fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, group, t); err != nil {
		return nil, err
	}

	if group.Status != t.from {
		return nil, fmt.Errorf("booking group %d is %s, %s needs %s: %w", groupID, group.Status, action, t.from, ErrInvalidTransition)
	}

	if _, err := s.repo.TransitionGroupStatus(ctx, groupID, t.from, t.to); err != nil {
		if errors.Is(err, store.ErrStatusMismatch) {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidTransition)
		}
		return nil, fmt.Errorf("failed to %s booking group: %w", action, err)
	}

	util.BookingStatusTransitionsTotal.WithLabelValues(string(action)).Inc()
	util.LoggerFrom(ctx).Info("Booking group transitioned",
		zap.Int64("booking_group_id", groupID),
		zap.String("action", string(action)),
		zap.String("actor_id", actor.UserID))

	s.publishTransition(ctx, actor, group, t)

	group.Status = t.to
	for i := range group.Items {
		group.Items[i].Status = t.to
	}
	return group, nil
}

func (s *BookingService) authorize(ctx context.Context, actor Actor, group *GroupSummary, t transition) error {
	if actor.IsAdmin() {
		return nil
	}
	if t.customer {
		if group.Customer.ID == actor.UserID {
			return nil
		}
		return fmt.Errorf("booking group %d: %w", group.GroupID, ErrForbidden)
	}
	if actor.Role == models.RoleMechanic {
		ok, err := s.assignedTo(ctx, actor, group.Mechanic.ID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("booking group %d: %w", group.GroupID, ErrForbidden)
}

// assignedTo reports whether actor is the mechanic with id mechanicID
func (s *BookingService) assignedTo(ctx context.Context, actor Actor, mechanicID int64) (bool, error) {
	mechanic, err := s.repo.GetMechanicByProfile(ctx, actor.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return mechanic.ID == mechanicID, nil
}

func (s *BookingService) loadGroup(ctx context.Context, groupID int64) (*GroupSummary, error) {
	rows, err := s.repo.ListBookingDetails(ctx, store.BookingQuery{GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("unable to load booking group: %w", err)
	}
	groups := GroupBookings(rows)
	if len(groups) == 0 {
		return nil, fmt.Errorf("booking group %d: %w", groupID, ErrNotFound)
	}
	return &groups[0], nil
}

func (s *BookingService) publishTransition(ctx context.Context, actor Actor, group *GroupSummary, t transition) {
	if s.publisher == nil {
		return
	}

	seen := map[int64]bool{}
	vehicleIDs := []int64{}
	for _, item := range group.Items {
		if !seen[item.Part.VehicleID] {
			seen[item.Part.VehicleID] = true
			vehicleIDs = append(vehicleIDs, item.Part.VehicleID)
		}
	}

	event := &models.BookingStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingStatusChanged,
			Timestamp: time.Now(),
		},
		BookingGroupID: group.GroupID,
		From:           t.from,
		To:             t.to,
		ActorID:        actor.UserID,
		VehicleIDs:     vehicleIDs,
	}
	if err := s.publisher.PublishBookingStatusChanged(ctx, event); err != nil {
		util.LoggerFrom(ctx).Error("Failed to publish status change event", zap.Int64("booking_group_id", group.GroupID), zap.Error(err))
	}
}
