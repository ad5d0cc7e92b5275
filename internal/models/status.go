package models

import (
	"fmt"
	"strings"
)

// BookingStatus is the lifecycle state of a booking row
type BookingStatus string

// Booking statuses
const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"

	// BookingStatusMixed only ever appears on a group whose rows disagree
	BookingStatusMixed BookingStatus = "mixed"
)

// ActiveStatuses reserve stock
var ActiveStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAccepted,
	BookingStatusInProgress,
}

// IsActive reports whether the status still counts against stock
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusInProgress:
		return true
	}
	return false
}

// ParseBookingStatus accepts the stored values plus "confirmed" as an alias of accepted
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected,
		BookingStatusMixed:
		return s, nil
	case "confirmed":
		return BookingStatusAccepted, nil
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}

// StatusStrings converts statuses for driver array arguments
func StatusStrings(statuses []BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
