package service

import (
	"testing"
	"time"

	"putik-service/internal/models"

	"github.com/shopspring/decimal"
)

var shopZone = time.FixedZone("PHT", 8*60*60)

const (
	customerID  = "0b6c1f44-0000-4000-8000-000000000001"
	otherUserID = "0b6c1f44-0000-4000-8000-000000000002"
	mechanicUID = "0b6c1f44-0000-4000-8000-000000000003"
	adminID     = "0b6c1f44-0000-4000-8000-000000000004"
)

type fixture struct {
	repo      *fakeRepo
	sessions  *fakeSessions
	publisher *fakePublisher
	catalog   *CatalogService
	cart      *CartService
	checkout  *CheckoutService
	bookings  *BookingService
	now       time.Time
}

// newFixture seeds two vehicles, a 5-unit winch (part 1), a 1-unit bar
// (part 2) and a part on the second vehicle (part 3), plus two mechanics.
func newFixture(t *testing.T, opts ...func(*CheckoutOptions)) *fixture {
	t.Helper()

	repo := newFakeRepo()
	repo.vehicles[1] = models.Vehicle{ID: 1, Name: "Hilux", Make: "Toyota", Model: "Hilux", Year: 2022}
	repo.vehicles[2] = models.Vehicle{ID: 2, Name: "Ranger", Make: "Ford", Model: "Ranger", Year: 2021}
	repo.types[1] = models.Type{ID: 1, Name: "Recovery"}
	repo.parts[1] = models.Part{ID: 1, Name: "Winch", Price: decimal.RequireFromString("2500.00"), Stock: 5, VehicleID: 1, TypeID: 1}
	repo.parts[2] = models.Part{ID: 2, Name: "Bull bar", Price: decimal.RequireFromString("18000.00"), Stock: 1, VehicleID: 1, TypeID: 1}
	repo.parts[3] = models.Part{ID: 3, Name: "Snorkel", Price: decimal.RequireFromString("7000.00"), Stock: 3, VehicleID: 2, TypeID: 1}

	profile := mechanicUID
	repo.mechanics[1] = models.Mechanic{ID: 1, ProfileID: &profile, Name: "Jun"}
	repo.mechanics[2] = models.Mechanic{ID: 2, Name: "Ramon"}

	repo.profiles[customerID] = models.UserProfile{ID: customerID, Role: models.RoleUser, FullName: "Ana"}
	repo.profiles[otherUserID] = models.UserProfile{ID: otherUserID, Role: models.RoleUser, FullName: "Ben"}

	f := &fixture{
		repo:      repo,
		sessions:  newFakeSessions(),
		publisher: &fakePublisher{},
		now:       time.Date(2026, 10, 14, 9, 0, 0, 0, shopZone),
	}

	o := CheckoutOptions{
		Location: shopZone,
		LockTTL:  time.Second,
		Now:      func() time.Time { return f.now },
	}
	for _, fn := range opts {
		fn(&o)
	}

	f.catalog = NewCatalogService(repo, nil, time.Minute)
	f.cart = NewCartService(repo, f.sessions, f.catalog)
	f.checkout = NewCheckoutService(repo, f.sessions, f.cart, f.publisher, o)
	f.bookings = NewBookingService(repo, f.publisher)
	return f
}

// reserve writes a booking group straight into the repo
func (f *fixture) reserve(userID string, mechanicID int64, status models.BookingStatus, lines ...models.CartLine) int64 {
	groupID := f.repo.id()
	f.repo.groups[groupID] = models.BookingGroup{ID: groupID, UserID: userID}
	for _, l := range lines {
		f.repo.bookings = append(f.repo.bookings, models.Booking{
			ID:             f.repo.id(),
			PartID:         l.PartID,
			MechanicID:     mechanicID,
			UserID:         userID,
			Quantity:       l.Quantity,
			Date:           f.day(3),
			Status:         status,
			BookingGroupID: groupID,
		})
	}
	return groupID
}

// day returns the calendar date offset days from today
func (f *fixture) day(offset int) time.Time {
	d := f.now.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, shopZone)
}

func line(partID int64, qty int) models.CartLine {
	return models.CartLine{PartID: partID, Quantity: qty}
}
