package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/store"
)

// fakeRepo is an in-memory stand-in for the postgres store. Booking writes
// apply the same reservation rule as the store under one mutex.
type fakeRepo struct {
	mu        sync.Mutex
	vehicles  map[int64]models.Vehicle
	types     map[int64]models.Type
	parts     map[int64]models.Part
	mechanics map[int64]models.Mechanic
	leaves    []models.MechanicUnavailableDay
	profiles  map[string]models.UserProfile
	bookings  []models.Booking
	groups    map[int64]models.BookingGroup
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		vehicles:  map[int64]models.Vehicle{},
		types:     map[int64]models.Type{},
		parts:     map[int64]models.Part{},
		mechanics: map[int64]models.Mechanic{},
		profiles:  map[string]models.UserProfile{},
		groups:    map[int64]models.BookingGroup{},
		nextID:    100,
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	out := []models.Vehicle{}
	for _, v := range f.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %d: %w", id, store.ErrNotFound)
	}
	return &v, nil
}

func (f *fakeRepo) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	v.ID = f.id()
	f.vehicles[v.ID] = *v
	return nil
}

func (f *fakeRepo) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	if _, ok := f.vehicles[v.ID]; !ok {
		return store.ErrNotFound
	}
	f.vehicles[v.ID] = *v
	return nil
}

func (f *fakeRepo) DeleteVehicle(ctx context.Context, id int64) error {
	if _, ok := f.vehicles[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.vehicles, id)
	return nil
}

func (f *fakeRepo) ListTypes(ctx context.Context) ([]models.Type, error) {
	out := []models.Type{}
	for _, t := range f.types {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) CreateType(ctx context.Context, t *models.Type) error {
	for _, existing := range f.types {
		if existing.Name == t.Name {
			return store.ErrAlreadyExists
		}
	}
	t.ID = f.id()
	f.types[t.ID] = *t
	return nil
}

func (f *fakeRepo) UpdateType(ctx context.Context, t *models.Type) error {
	if _, ok := f.types[t.ID]; !ok {
		return store.ErrNotFound
	}
	f.types[t.ID] = *t
	return nil
}

func (f *fakeRepo) DeleteType(ctx context.Context, id int64) error {
	for _, p := range f.parts {
		if p.TypeID == id {
			return store.ErrInUse
		}
	}
	delete(f.types, id)
	return nil
}

func (f *fakeRepo) ListParts(ctx context.Context, vehicleID int64, filter models.CatalogFilter) ([]models.Part, error) {
	out := []models.Part{}
	for _, p := range f.parts {
		if p.VehicleID == vehicleID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	p, ok := f.parts[id]
	if !ok {
		return nil, fmt.Errorf("part %d: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeRepo) GetPartsByIDs(ctx context.Context, ids []int64) ([]models.Part, error) {
	out := []models.Part{}
	for _, id := range ids {
		if p, ok := f.parts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreatePart(ctx context.Context, p *models.Part) error {
	p.ID = f.id()
	f.parts[p.ID] = *p
	return nil
}

func (f *fakeRepo) UpdatePart(ctx context.Context, p *models.Part) error {
	if _, ok := f.parts[p.ID]; !ok {
		return store.ErrNotFound
	}
	f.parts[p.ID] = *p
	return nil
}

func (f *fakeRepo) DeletePart(ctx context.Context, id int64) error {
	for _, b := range f.bookings {
		if b.PartID == id {
			return store.ErrInUse
		}
	}
	delete(f.parts, id)
	return nil
}

func (f *fakeRepo) ListMechanics(ctx context.Context) ([]models.Mechanic, error) {
	out := []models.Mechanic{}
	for _, m := range f.mechanics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetMechanic(ctx context.Context, id int64) (*models.Mechanic, error) {
	m, ok := f.mechanics[id]
	if !ok {
		return nil, fmt.Errorf("mechanic %d: %w", id, store.ErrNotFound)
	}
	return &m, nil
}

func (f *fakeRepo) GetMechanicByProfile(ctx context.Context, profileID string) (*models.Mechanic, error) {
	for _, m := range f.mechanics {
		if m.ProfileID != nil && *m.ProfileID == profileID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("mechanic for profile %s: %w", profileID, store.ErrNotFound)
}

func (f *fakeRepo) CreateMechanic(ctx context.Context, m *models.Mechanic) error {
	m.ID = f.id()
	f.mechanics[m.ID] = *m
	return nil
}

func (f *fakeRepo) UpdateMechanic(ctx context.Context, m *models.Mechanic) error {
	if _, ok := f.mechanics[m.ID]; !ok {
		return store.ErrNotFound
	}
	f.mechanics[m.ID] = *m
	return nil
}

func (f *fakeRepo) DeleteMechanic(ctx context.Context, id int64) error {
	delete(f.mechanics, id)
	return nil
}

func (f *fakeRepo) ListLeavesOn(ctx context.Context, date time.Time) ([]models.MechanicUnavailableDay, error) {
	out := []models.MechanicUnavailableDay{}
	for _, l := range f.leaves {
		if l.Date.Format(store.DateLayout) == date.Format(store.DateLayout) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListLeaves(ctx context.Context, mechanicID int64, from, to *time.Time) ([]models.MechanicUnavailableDay, error) {
	out := []models.MechanicUnavailableDay{}
	for _, l := range f.leaves {
		if l.MechanicID != mechanicID {
			continue
		}
		if from != nil && l.Date.Before(*from) {
			continue
		}
		if to != nil && l.Date.After(*to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRepo) AddLeave(ctx context.Context, leave *models.MechanicUnavailableDay) error {
	for _, l := range f.leaves {
		if l.MechanicID == leave.MechanicID && l.Date.Format(store.DateLayout) == leave.Date.Format(store.DateLayout) {
			return store.ErrAlreadyExists
		}
	}
	leave.ID = f.id()
	f.leaves = append(f.leaves, *leave)
	return nil
}

func (f *fakeRepo) DeleteLeave(ctx context.Context, mechanicID, leaveID int64) error {
	for i, l := range f.leaves {
		if l.ID == leaveID && l.MechanicID == mechanicID {
			f.leaves = append(f.leaves[:i], f.leaves[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeRepo) ListActiveBookingsForVehicle(ctx context.Context, vehicleID int64) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if b.Status.IsActive() && f.parts[b.PartID].VehicleID == vehicleID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListActiveBookingsForParts(ctx context.Context, partIDs []int64) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range partIDs {
		want[id] = true
	}
	out := []models.Booking{}
	for _, b := range f.bookings {
		if b.Status.IsActive() && want[b.PartID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListBookingDetails(ctx context.Context, q store.BookingQuery) ([]models.BookingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.BookingDetail{}
	for _, b := range f.bookings {
		if q.UserID != "" && b.UserID != q.UserID {
			continue
		}
		if q.MechanicID != 0 && b.MechanicID != q.MechanicID {
			continue
		}
		if q.GroupID != 0 && b.BookingGroupID != q.GroupID {
			continue
		}
		part := f.parts[b.PartID]
		out = append(out, models.BookingDetail{
			Booking:  b,
			Part:     part,
			Vehicle:  f.vehicles[part.VehicleID],
			Mechanic: f.mechanics[b.MechanicID],
			Customer: f.profiles[b.UserID],
		})
	}
	return out, nil
}

func (f *fakeRepo) GetGroupBookings(ctx context.Context, groupID int64) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if b.BookingGroupID == groupID {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("booking group %d: %w", groupID, store.ErrNotFound)
	}
	return out, nil
}

func (f *fakeRepo) reserve(in store.ReservationInput, creditGroupID int64) error {
	requested := map[int64]int{}
	for _, l := range in.Lines {
		requested[l.PartID] += l.Quantity
	}
	reserved := map[int64]int{}
	for _, b := range f.bookings {
		if b.Status.IsActive() && b.BookingGroupID != creditGroupID {
			reserved[b.PartID] += b.Quantity
		}
	}

	var shortages []store.Shortage
	ids := []int64{}
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p, ok := f.parts[id]
		if !ok {
			return store.ErrNotFound
		}
		available := p.Stock - reserved[id]
		if available < 0 {
			available = 0
		}
		if requested[id] > available {
			shortages = append(shortages, store.Shortage{PartID: id, Requested: requested[id], Available: available})
		}
	}
	if len(shortages) > 0 {
		return &store.StockError{Shortages: shortages}
	}

	if in.EnforceLeave {
		for _, l := range f.leaves {
			if l.MechanicID == in.MechanicID && l.Date.Format(store.DateLayout) == in.Date.Format(store.DateLayout) {
				return store.ErrMechanicOnLeave
			}
		}
	}
	return nil
}

func (f *fakeRepo) insert(groupID int64, in store.ReservationInput) []models.Booking {
	out := []models.Booking{}
	for _, l := range in.Lines {
		b := models.Booking{
			ID:             f.id(),
			PartID:         l.PartID,
			MechanicID:     in.MechanicID,
			UserID:         in.UserID,
			Quantity:       l.Quantity,
			Date:           in.Date,
			Status:         models.BookingStatusPending,
			BookingGroupID: groupID,
		}
		f.bookings = append(f.bookings, b)
		out = append(out, b)
	}
	return out
}

func (f *fakeRepo) CreateBookingGroup(ctx context.Context, in store.ReservationInput) (*store.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reserve(in, 0); err != nil {
		return nil, err
	}
	group := models.BookingGroup{ID: f.id(), UserID: in.UserID, CreatedAt: time.Now()}
	f.groups[group.ID] = group
	return &store.Reservation{Group: group, Bookings: f.insert(group.ID, in)}, nil
}

func (f *fakeRepo) ReplaceBookingGroup(ctx context.Context, groupID int64, in store.ReservationInput) (*store.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[groupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, b := range f.bookings {
		if b.BookingGroupID == groupID && b.Status != models.BookingStatusPending {
			return nil, store.ErrStatusMismatch
		}
	}
	if err := f.reserve(in, groupID); err != nil {
		return nil, err
	}
	kept := f.bookings[:0]
	for _, b := range f.bookings {
		if b.BookingGroupID != groupID {
			kept = append(kept, b)
		}
	}
	f.bookings = kept
	return &store.Reservation{Group: group, Bookings: f.insert(groupID, in)}, nil
}

func (f *fakeRepo) TransitionGroupStatus(ctx context.Context, groupID int64, from, to models.BookingStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.bookings {
		if b.BookingGroupID == groupID {
			if b.Status != from {
				return 0, store.ErrStatusMismatch
			}
			n++
		}
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	for i := range f.bookings {
		if f.bookings[i].BookingGroupID == groupID {
			f.bookings[i].Status = to
		}
	}
	return n, nil
}

func (f *fakeRepo) activeQuantity(partID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bookings {
		if b.PartID == partID && b.Status.IsActive() {
			n += b.Quantity
		}
	}
	return n
}

// fakeSessions mirrors the redis cart, wizard, lock and idempotency keys
type fakeSessions struct {
	mu          sync.Mutex
	carts       map[string][]models.CartLine
	checkouts   map[string]models.CheckoutSession
	idempotency map[string]string
	locks       map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		carts:       map[string][]models.CartLine{},
		checkouts:   map[string]models.CheckoutSession{},
		idempotency: map[string]string{},
		locks:       map[string]string{},
	}
}

func (f *fakeSessions) AddCartItem(ctx context.Context, userID string, partID int64, max int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.carts[userID]
	for i, l := range lines {
		if l.PartID == partID {
			if l.Quantity < max {
				lines[i].Quantity++
			}
			return lines[i].Quantity, nil
		}
	}
	if max < 1 {
		return 0, nil
	}
	f.carts[userID] = append(lines, models.CartLine{PartID: partID, Quantity: 1})
	return 1, nil
}

func (f *fakeSessions) SetCartItem(ctx context.Context, userID string, partID int64, qty, max int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if qty > max {
		qty = max
	}
	if qty < 0 {
		qty = 0
	}
	lines := f.carts[userID]
	for i, l := range lines {
		if l.PartID == partID {
			if qty == 0 {
				f.carts[userID] = append(lines[:i], lines[i+1:]...)
				return 0, nil
			}
			lines[i].Quantity = qty
			return qty, nil
		}
	}
	if qty > 0 {
		f.carts[userID] = append(lines, models.CartLine{PartID: partID, Quantity: qty})
	}
	return qty, nil
}

func (f *fakeSessions) CartItems(ctx context.Context, userID string) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CartLine{}, f.carts[userID]...), nil
}

func (f *fakeSessions) ReplaceCart(ctx context.Context, userID string, lines []models.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = append([]models.CartLine{}, lines...)
	return nil
}

func (f *fakeSessions) ClearCart(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

func (f *fakeSessions) GetCheckout(ctx context.Context, userID string) (*models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.checkouts[userID]
	if !ok {
		return &models.CheckoutSession{Step: models.CheckoutStepIdle}, nil
	}
	return &s, nil
}

func (f *fakeSessions) SaveCheckout(ctx context.Context, userID string, session *models.CheckoutSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts[userID] = *session
	return nil
}

func (f *fakeSessions) DeleteCheckout(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.checkouts, userID)
	return nil
}

func (f *fakeSessions) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idempotency[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeSessions) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.idempotency[key]
	return v, ok, nil
}

func (f *fakeSessions) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.locks[lockKey]; held {
		return "", false, nil
	}
	token := strconv.Itoa(len(f.locks) + 1)
	f.locks[lockKey] = token
	return token, true, nil
}

func (f *fakeSessions) ReleaseLock(ctx context.Context, lockKey, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[lockKey] == token {
		delete(f.locks, lockKey)
	}
	return nil
}

// fakeCache is a map-backed availability cache
type fakeCache struct {
	snapshots map[int64][]models.Booking
	reads     int
}

func (f *fakeCache) CachedAvailability(ctx context.Context, vehicleID int64, dst interface{}) (bool, error) {
	f.reads++
	b, ok := f.snapshots[vehicleID]
	if !ok {
		return false, nil
	}
	*(dst.(*[]models.Booking)) = b
	return true, nil
}

func (f *fakeCache) CacheAvailability(ctx context.Context, vehicleID int64, snapshot interface{}, ttl time.Duration) error {
	f.snapshots[vehicleID] = snapshot.([]models.Booking)
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu       sync.Mutex
	groups   []*models.BookingGroupEvent
	statuses []*models.BookingStatusChangedEvent
	catalog  []*models.CatalogChangedEvent
}

func (f *fakePublisher) PublishBookingGroupCreated(ctx context.Context, e *models.BookingGroupEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, e)
	return nil
}

func (f *fakePublisher) PublishBookingGroupUpdated(ctx context.Context, e *models.BookingGroupEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, e)
	return nil
}

func (f *fakePublisher) PublishBookingStatusChanged(ctx context.Context, e *models.BookingStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, e)
	return nil
}

func (f *fakePublisher) PublishCatalogChanged(ctx context.Context, e *models.CatalogChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog = append(f.catalog, e)
	return nil
}
