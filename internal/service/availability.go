package service

import (
	"putik-service/internal/models"
)

// Availability is the live reservation picture of one part
type Availability struct {
	PartID              int64 `json:"part_id"`
	BookedQuantity      int   `json:"booked_quantity"`
	AvailableQuantity   int   `json:"available_quantity"`
	EditBookingQuantity int   `json:"edit_booking_quantity"`
}

// Remaining is what a cart may hold: the unbooked stock plus whatever the
// group being edited already reserves. Never negative.
func (a Availability) Remaining() int {
	n := a.AvailableQuantity + a.EditBookingQuantity
	if n < 0 {
		return 0
	}
	return n
}

// ComputeAvailability derives per-part availability from a snapshot of parts
// and bookings. Only active bookings count. Bookings on parts outside the
// snapshot are ignored. editGroupID, when set, is credited back through
// EditBookingQuantity.
func ComputeAvailability(parts []models.Part, bookings []models.Booking, editGroupID *int64) map[int64]Availability {
	out := make(map[int64]Availability, len(parts))
	for _, p := range parts {
		out[p.ID] = Availability{PartID: p.ID, AvailableQuantity: p.Stock}
	}

	for _, b := range bookings {
		if !b.Status.IsActive() {
			continue
		}
		a, ok := out[b.PartID]
		if !ok {
			continue
		}
		a.BookedQuantity += b.Quantity
		a.AvailableQuantity -= b.Quantity
		if editGroupID != nil && b.BookingGroupID == *editGroupID {
			a.EditBookingQuantity += b.Quantity
		}
		out[b.PartID] = a
	}

	return out
}
