package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is admin-managed reference data that parts are fitted to
type Vehicle struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Make  string `db:"make" json:"make"`
	Model string `db:"model" json:"model"`
	Year  int    `db:"year" json:"year"`
	URL   string `db:"url" json:"url"`
}

// Type is a part category tag
type Type struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Part is a catalog item with an authoritative on-hand stock count
type Part struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	URL         string          `db:"url" json:"url"`
	VehicleID   int64           `db:"vehicle_id" json:"vehicle_id"`
	TypeID      int64           `db:"type_id" json:"type_id"`
}

// BookingGroup is the unit of one checkout; its status is derived from its bookings
type BookingGroup struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Booking reserves quantity units of one part for one date
type Booking struct {
	ID             int64         `db:"id" json:"id"`
	PartID         int64         `db:"part_id" json:"part_id"`
	MechanicID     int64         `db:"mechanic_id" json:"mechanic_id"`
	UserID         string        `db:"user_id" json:"user_id"`
	Quantity       int           `db:"quantity" json:"quantity"`
	Date           time.Time     `db:"date" json:"date"`
	Status         BookingStatus `db:"status" json:"status"`
	BookingGroupID int64         `db:"booking_group_id" json:"booking_group_id"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Mechanic is an installer customers pick during checkout
type Mechanic struct {
	ID            int64   `db:"id" json:"id"`
	ProfileID     *string `db:"profile_id" json:"profile_id,omitempty"`
	Name          string  `db:"name" json:"name"`
	Email         string  `db:"email" json:"email"`
	ContactNumber string  `db:"contact_number" json:"contact_number"`
	URL           string  `db:"url" json:"url"`
}

// MechanicUnavailableDay is an advisory leave record
type MechanicUnavailableDay struct {
	ID         int64     `db:"id" json:"id"`
	MechanicID int64     `db:"mechanic_id" json:"mechanic_id"`
	Date       time.Time `db:"date" json:"date"`
	Reason     string    `db:"reason" json:"reason"`
}

// UserProfile carries the role of an auth identity
type UserProfile struct {
	ID            string `db:"id" json:"id"`
	Role          Role   `db:"role" json:"role"`
	FullName      string `db:"full_name" json:"full_name"`
	Email         string `db:"email" json:"email"`
	ContactNumber string `db:"contact_number" json:"contact_number"`
}

// BookingDetail is a booking row joined with everything a listing shows
type BookingDetail struct {
	Booking
	Part     Part        `db:"part" json:"part"`
	Vehicle  Vehicle     `db:"vehicle" json:"vehicle"`
	Mechanic Mechanic    `db:"mechanic" json:"mechanic"`
	Customer UserProfile `db:"customer" json:"customer"`
}

// Role values consumed from the auth provider
type Role string

const (
	RoleUser     Role = "user"
	RoleMechanic Role = "mechanic"
	RoleAdmin    Role = "admin"
)

// CatalogFilter is the search state shared by the header search box and the
// results list. An empty filter matches every part.
type CatalogFilter struct {
	Search  string  `form:"search" json:"search"`
	TypeIDs []int64 `form:"type_id" json:"type_ids"`
}
