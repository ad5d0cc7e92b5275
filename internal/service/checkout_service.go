package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/store"
	"putik-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CheckoutOptions tunes the booking wizard
type CheckoutOptions struct {
	Location       *time.Location
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
	EnforceLeave   bool
	// Now defaults to time.Now
	Now func() time.Time
}

// CheckoutView is the wizard state together with the cart it submits
type CheckoutView struct {
	Step       models.CheckoutStep `json:"step"`
	Date       *time.Time          `json:"date,omitempty"`
	MechanicID *int64              `json:"mechanic_id,omitempty"`
	Cart       *CartView           `json:"cart"`
}

// ConfirmResult is a committed booking group
type ConfirmResult struct {
	GroupID  int64            `json:"booking_group_id"`
	Edited   bool             `json:"edited"`
	Replayed bool             `json:"replayed"`
	Bookings []models.Booking `json:"bookings,omitempty"`
}

// CheckoutService drives the date, mechanic and confirm wizard
type CheckoutService struct {
	repo      BookingRepository
	sessions  SessionStore
	cart      *CartService
	publisher EventPublisher
	opts      CheckoutOptions
}

// NewCheckoutService creates a checkout service
func NewCheckoutService(repo BookingRepository, sessions SessionStore, cart *CartService, publisher EventPublisher, opts CheckoutOptions) *CheckoutService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &CheckoutService{
		repo:      repo,
		sessions:  sessions,
		cart:      cart,
		publisher: publisher,
		opts:      opts,
	}
}

// ParseDate reads a calendar date in the shop's time zone
func (s *CheckoutService) ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(store.DateLayout, raw, s.opts.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", raw, ErrInvalidInput)
	}
	return d, nil
}

func (s *CheckoutService) today() time.Time {
	now := s.opts.Now().In(s.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
}

func (s *CheckoutService) isPast(date time.Time) bool {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.opts.Location)
	return d.Before(s.today())
}

// Get returns the wizard state of userID
func (s *CheckoutService) Get(ctx context.Context, userID string) (*CheckoutView, error) {
	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, userID, session)
}

// SelectDate sets the booking date. It needs a non-empty cart and rejects
// dates before today. Any earlier mechanic choice is discarded.
func (s *CheckoutService) SelectDate(ctx context.Context, userID string, date time.Time) (*CheckoutView, error) {
	lines, err := s.sessions.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if s.isPast(date) {
		return nil, fmt.Errorf("%s: %w", date.Format(store.DateLayout), ErrPastDate)
	}

	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	session.Step = models.CheckoutStepDateSelected
	session.Date = &date
	session.MechanicID = nil

	if err := s.sessions.SaveCheckout(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}
	return s.view(ctx, userID, session)
}

// MechanicOptions lists every mechanic with an advisory availability flag
// for the selected date
func (s *CheckoutService) MechanicOptions(ctx context.Context, userID string) ([]models.MechanicOption, error) {
	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Date == nil {
		return nil, fmt.Errorf("select a date first: %w", ErrInvalidStep)
	}
	return s.mechanicOptions(ctx, *session.Date)
}

func (s *CheckoutService) mechanicOptions(ctx context.Context, date time.Time) ([]models.MechanicOption, error) {
	mechanics, err := s.repo.ListMechanics(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load mechanics: %w", err)
	}
	leaves, err := s.repo.ListLeavesOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("unable to load mechanic leaves: %w", err)
	}

	reasons := make(map[int64]string, len(leaves))
	for _, l := range leaves {
		reasons[l.MechanicID] = l.Reason
	}

	options := make([]models.MechanicOption, 0, len(mechanics))
	for _, m := range mechanics {
		reason, onLeave := reasons[m.ID]
		options = append(options, models.MechanicOption{Mechanic: m, Available: !onLeave, Reason: reason})
	}
	return options, nil
}

// SelectMechanic picks the installer for the selected date
func (s *CheckoutService) SelectMechanic(ctx context.Context, userID string, mechanicID int64) (*CheckoutView, error) {
	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Date == nil {
		return nil, fmt.Errorf("select a date first: %w", ErrInvalidStep)
	}

	if _, err := s.repo.GetMechanic(ctx, mechanicID); err != nil {
		return nil, err
	}

	leaves, err := s.repo.ListLeavesOn(ctx, *session.Date)
	if err != nil {
		return nil, fmt.Errorf("unable to load mechanic leaves: %w", err)
	}
	for _, l := range leaves {
		if l.MechanicID == mechanicID {
			return nil, fmt.Errorf("mechanic %d: %w", mechanicID, ErrMechanicUnavailable)
		}
	}

	session.Step = models.CheckoutStepMechanicSelected
	session.MechanicID = &mechanicID
	if err := s.sessions.SaveCheckout(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}
	return s.view(ctx, userID, session)
}

// Cancel drops the date and mechanic choices; the cart is kept
func (s *CheckoutService) Cancel(ctx context.Context, userID string) (*CheckoutView, error) {
	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	session.Reset()
	if err := s.sessions.SaveCheckout(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}
	return s.view(ctx, userID, session)
}

// BeginEdit loads a pending group of its owner into the cart. Availability
// then credits back the group's own reservation until it is resubmitted.
func (s *CheckoutService) BeginEdit(ctx context.Context, actor Actor, groupID int64) (*CheckoutView, error) {
	bookings, err := s.repo.GetGroupBookings(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if bookings[0].UserID != actor.UserID {
		return nil, fmt.Errorf("booking group %d: %w", groupID, ErrForbidden)
	}

	statuses := make([]models.BookingStatus, len(bookings))
	for i, b := range bookings {
		statuses[i] = b.Status
	}
	if AggregateStatus(statuses) != models.BookingStatusPending {
		return nil, fmt.Errorf("booking group %d: %w", groupID, ErrNotEditable)
	}

	first, err := s.repo.GetPart(ctx, bookings[0].PartID)
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(bookings))
	for _, b := range bookings {
		lines = append(lines, models.CartLine{PartID: b.PartID, Quantity: b.Quantity})
	}
	if err := s.sessions.ReplaceCart(ctx, actor.UserID, lines); err != nil {
		return nil, fmt.Errorf("failed to seed cart: %w", err)
	}

	session := &models.CheckoutSession{
		VehicleID:   first.VehicleID,
		EditGroupID: &groupID,
		Step:        models.CheckoutStepIdle,
	}
	if err := s.sessions.SaveCheckout(ctx, actor.UserID, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	util.LoggerFrom(ctx).Info("Booking group edit started", zap.String("user_id", actor.UserID), zap.Int64("booking_group_id", groupID))
	return s.view(ctx, actor.UserID, session)
}

// Confirm submits the cart. Stock is checked and reserved in one database
// transaction; in edit mode the group's bookings are replaced in place.
// A repeated idempotency key returns the group created the first time.
func (s *CheckoutService) Confirm(ctx context.Context, userID, idempotencyKey string) (result *ConfirmResult, err error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Confirm", attribute.String("user_id", userID))
	defer func() { util.EndSpan(span, err) }()

	idemKey := ""
	if idempotencyKey != "" {
		idemKey = fmt.Sprintf("checkout:%s:%s", userID, idempotencyKey)
		if prior, found, err := s.replay(ctx, idemKey); err != nil || found {
			return prior, err
		}
	}

	lockKey := "checkout:" + userID
	token, ok, err := s.sessions.AcquireLock(ctx, lockKey, s.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		util.BookingSubmissionsRejectedTotal.WithLabelValues("busy").Inc()
		return nil, ErrBusy
	}
	defer func() {
		if err := s.sessions.ReleaseLock(context.Background(), lockKey, token); err != nil {
			util.LoggerFrom(ctx).Warn("Failed to release checkout lock", zap.String("user_id", userID), zap.Error(err))
		}
	}()

	// a concurrent confirm with the same key may have finished while we waited
	if idemKey != "" {
		if prior, found, err := s.replay(ctx, idemKey); err != nil || found {
			return prior, err
		}
	}

	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Step != models.CheckoutStepMechanicSelected && session.Step != models.CheckoutStepConfirmed {
		return nil, fmt.Errorf("select a mechanic first: %w", ErrInvalidStep)
	}
	if session.Date == nil || session.MechanicID == nil {
		return nil, fmt.Errorf("wizard state incomplete: %w", ErrInvalidStep)
	}
	if s.isPast(*session.Date) {
		return nil, fmt.Errorf("%s: %w", session.Date.Format(store.DateLayout), ErrPastDate)
	}

	lines, err := s.sessions.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	session.Step = models.CheckoutStepConfirmed
	if err := s.sessions.SaveCheckout(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	in := store.ReservationInput{
		UserID:       userID,
		MechanicID:   *session.MechanicID,
		Date:         *session.Date,
		Lines:        lines,
		EnforceLeave: s.opts.EnforceLeave,
	}

	start := time.Now()
	var reservation *store.Reservation
	edited := session.EditGroupID != nil
	if edited {
		reservation, err = s.repo.ReplaceBookingGroup(ctx, *session.EditGroupID, in)
	} else {
		reservation, err = s.repo.CreateBookingGroup(ctx, in)
	}
	util.CheckoutConfirmLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, s.rejectConfirm(ctx, userID, err)
	}

	s.finish(ctx, userID)

	if idemKey != "" {
		if err := s.sessions.SetIdempotencyKey(ctx, idemKey, reservation.Group.ID, s.opts.IdempotencyTTL); err != nil {
			util.LoggerFrom(ctx).Warn("Failed to store idempotency key", zap.String("key", idemKey), zap.Error(err))
		}
	}

	if edited {
		util.BookingGroupsEditedTotal.Inc()
	} else {
		util.BookingGroupsCreatedTotal.Inc()
	}
	util.LoggerFrom(ctx).Info("Booking group submitted",
		zap.Int64("booking_group_id", reservation.Group.ID),
		zap.String("user_id", userID),
		zap.Bool("edited", edited),
		zap.Int("lines", len(reservation.Bookings)))

	s.publishGroup(ctx, reservation, in, edited)

	return &ConfirmResult{
		GroupID:  reservation.Group.ID,
		Edited:   edited,
		Bookings: reservation.Bookings,
	}, nil
}

func (s *CheckoutService) replay(ctx context.Context, key string) (*ConfirmResult, bool, error) {
	raw, found, err := s.sessions.GetIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	groupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency value %q: %w", raw, err)
	}
	util.LoggerFrom(ctx).Info("Duplicate checkout confirm detected", zap.String("key", key), zap.Int64("booking_group_id", groupID))
	return &ConfirmResult{GroupID: groupID, Replayed: true}, true, nil
}

func (s *CheckoutService) rejectConfirm(ctx context.Context, userID string, err error) error {
	var stockErr *StockError
	switch {
	case errors.As(err, &stockErr):
		util.BookingSubmissionsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		util.LoggerFrom(ctx).Info("Checkout rejected for stock", zap.String("user_id", userID), zap.Any("shortages", stockErr.Shortages))
		return err
	case errors.Is(err, store.ErrMechanicOnLeave):
		util.BookingSubmissionsRejectedTotal.WithLabelValues("mechanic_on_leave").Inc()
		return fmt.Errorf("%v: %w", err, ErrMechanicUnavailable)
	case errors.Is(err, store.ErrStatusMismatch):
		util.BookingSubmissionsRejectedTotal.WithLabelValues("not_editable").Inc()
		return fmt.Errorf("%v: %w", err, ErrNotEditable)
	case errors.Is(err, store.ErrNotFound):
		util.BookingSubmissionsRejectedTotal.WithLabelValues("not_found").Inc()
		return err
	}
	util.BookingSubmissionsRejectedTotal.WithLabelValues("db_error").Inc()
	return fmt.Errorf("failed to submit booking: %w", err)
}

// finish clears the cart and the wizard after a committed submission
func (s *CheckoutService) finish(ctx context.Context, userID string) {
	if err := s.sessions.ClearCart(ctx, userID); err != nil {
		util.LoggerFrom(ctx).Error("Failed to clear cart after submit", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.sessions.DeleteCheckout(ctx, userID); err != nil {
		util.LoggerFrom(ctx).Error("Failed to reset checkout after submit", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *CheckoutService) publishGroup(ctx context.Context, r *store.Reservation, in store.ReservationInput, edited bool) {
	if s.publisher == nil {
		return
	}

	items := make([]models.BookingItemData, 0, len(r.Bookings))
	partIDs := make([]int64, 0, len(r.Bookings))
	for _, b := range r.Bookings {
		items = append(items, models.BookingItemData{PartID: b.PartID, Quantity: b.Quantity})
		partIDs = append(partIDs, b.PartID)
	}

	vehicleIDs, err := vehiclesOfParts(ctx, s.repo, partIDs)
	if err != nil {
		util.LoggerFrom(ctx).Warn("Failed to resolve vehicles for event", zap.Int64("booking_group_id", r.Group.ID), zap.Error(err))
	}

	eventType := models.EventTypeBookingGroupCreated
	if edited {
		eventType = models.EventTypeBookingGroupUpdated
	}
	event := &models.BookingGroupEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		BookingGroupID: r.Group.ID,
		UserID:         in.UserID,
		MechanicID:     in.MechanicID,
		Date:           in.Date,
		VehicleIDs:     vehicleIDs,
		Items:          items,
	}

	if edited {
		err = s.publisher.PublishBookingGroupUpdated(ctx, event)
	} else {
		err = s.publisher.PublishBookingGroupCreated(ctx, event)
	}
	if err != nil {
		util.LoggerFrom(ctx).Error("Failed to publish booking group event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *CheckoutService) view(ctx context.Context, userID string, session *models.CheckoutSession) (*CheckoutView, error) {
	cart, err := s.cart.view(ctx, userID, session)
	if err != nil {
		return nil, err
	}
	return &CheckoutView{
		Step:       session.Step,
		Date:       session.Date,
		MechanicID: session.MechanicID,
		Cart:       cart,
	}, nil
}

// vehiclesOfParts returns the distinct vehicles the parts belong to
func vehiclesOfParts(ctx context.Context, repo CatalogRepository, partIDs []int64) ([]int64, error) {
	parts, err := repo.GetPartsByIDs(ctx, partIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(parts))
	out := []int64{}
	for _, p := range parts {
		if !seen[p.VehicleID] {
			seen[p.VehicleID] = true
			out = append(out, p.VehicleID)
		}
	}
	return out, nil
}
