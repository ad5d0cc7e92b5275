package service

import (
	"context"
	"testing"

	"putik-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customer = Actor{UserID: customerID, Role: models.RoleUser}
	mechanic = Actor{UserID: mechanicUID, Role: models.RoleMechanic}
	admin    = Actor{UserID: adminID, Role: models.RoleAdmin}
)

func TestAcceptMovesEveryRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 1), line(2, 1))

	group, err := f.bookings.Transition(ctx, mechanic, groupID, ActionAccept)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusAccepted, group.Status)
	rows, _ := f.repo.GetGroupBookings(ctx, groupID)
	for _, b := range rows {
		assert.Equal(t, models.BookingStatusAccepted, b.Status)
	}

	require.Len(t, f.publisher.statuses, 1)
	event := f.publisher.statuses[0]
	assert.Equal(t, models.BookingStatusPending, event.From)
	assert.Equal(t, models.BookingStatusAccepted, event.To)
	assert.Equal(t, []int64{1}, event.VehicleIDs)
}

func TestTransitionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 2))

	_, err := f.bookings.Transition(ctx, mechanic, groupID, ActionStart)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, step := range []struct {
		action Action
		want   models.BookingStatus
	}{
		{ActionAccept, models.BookingStatusAccepted},
		{ActionStart, models.BookingStatusInProgress},
		{ActionComplete, models.BookingStatusCompleted},
	} {
		group, err := f.bookings.Transition(ctx, mechanic, groupID, step.action)
		require.NoError(t, err, step.action)
		assert.Equal(t, step.want, group.Status)
	}

	assert.Equal(t, 0, f.repo.activeQuantity(1), "completed bookings release stock")
}

func TestRejectAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rejected := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 1))
	cancelled := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 1))

	_, err := f.bookings.Transition(ctx, admin, rejected, ActionReject)
	require.NoError(t, err)

	_, err = f.bookings.Transition(ctx, customer, cancelled, ActionCancel)
	require.NoError(t, err)

	_, err = f.bookings.Transition(ctx, customer, cancelled, ActionCancel)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assignedElsewhere := f.reserve(customerID, 2, models.BookingStatusPending, line(1, 1))
	mine := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 1))

	_, err := f.bookings.Transition(ctx, mechanic, assignedElsewhere, ActionAccept)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.Transition(ctx, customer, mine, ActionAccept)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.Transition(ctx, Actor{UserID: otherUserID, Role: models.RoleUser}, mine, ActionCancel)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.Transition(ctx, admin, mine, ActionCancel)
	assert.NoError(t, err)

	_, err = f.bookings.Transition(ctx, admin, 4040, ActionAccept)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionMixedGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 1))
	f.repo.bookings = append(f.repo.bookings, models.Booking{
		ID: f.repo.id(), PartID: 2, MechanicID: 1, UserID: customerID, Quantity: 1,
		Date: f.day(3), Status: models.BookingStatusAccepted, BookingGroupID: groupID,
	})

	_, err := f.bookings.Transition(ctx, mechanic, groupID, ActionAccept)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("complete")
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, a)

	_, err = ParseAction("archive")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestListingsByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reserve(customerID, 1, models.BookingStatusPending, line(1, 1))
	f.reserve(customerID, 2, models.BookingStatusAccepted, line(1, 1))
	f.reserve(otherUserID, 1, models.BookingStatusPending, line(2, 1))

	own, err := f.bookings.ListForCustomer(ctx, customerID, nil)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	assert.Equal(t, models.BookingStatusPending, own[0].Status)

	assigned, err := f.bookings.ListForMechanic(ctx, mechanicUID, nil)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	all, err := f.bookings.ListAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	accepted := models.BookingStatusAccepted
	filtered, err := f.bookings.ListAll(ctx, &accepted)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.BookingStatusAccepted, filtered[0].Status)

	_, err = f.bookings.ListForMechanic(ctx, otherUserID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetGroupAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.reserve(customerID, 1, models.BookingStatusPending, line(1, 2))

	group, err := f.bookings.GetGroup(ctx, customer, groupID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", group.Customer.FullName)
	assert.Equal(t, "Hilux", group.Vehicle.Name)
	assert.Equal(t, "5000", group.Total.String())

	_, err = f.bookings.GetGroup(ctx, mechanic, groupID)
	assert.NoError(t, err)

	_, err = f.bookings.GetGroup(ctx, admin, groupID)
	assert.NoError(t, err)

	_, err = f.bookings.GetGroup(ctx, Actor{UserID: otherUserID, Role: models.RoleUser}, groupID)
	assert.ErrorIs(t, err, ErrForbidden)
}
