package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"putik-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ReservationInput is everything needed to write a booking group
type ReservationInput struct {
	UserID     string
	MechanicID int64
	Date       time.Time
	Lines      []models.CartLine
	// EnforceLeave rejects a mechanic with an unavailable day on Date
	EnforceLeave bool
}

// Reservation is the result of a committed create or replace
type Reservation struct {
	Group    models.BookingGroup
	Bookings []models.Booking
}

// BookingQuery narrows booking detail listings; zero values are ignored
type BookingQuery struct {
	UserID     string
	MechanicID int64
	GroupID    int64
}

const bookingDetailSelect = `
	SELECT b.id, b.part_id, b.mechanic_id, b.user_id, b.quantity, b.date, b.status,
		b.booking_group_id, b.created_at, b.updated_at,
		p.id AS "part.id", p.name AS "part.name", p.description AS "part.description",
		p.price AS "part.price", p.stock AS "part.stock", p.url AS "part.url",
		p.vehicle_id AS "part.vehicle_id", p.type_id AS "part.type_id",
		v.id AS "vehicle.id", v.name AS "vehicle.name", v.make AS "vehicle.make",
		v.model AS "vehicle.model", v.year AS "vehicle.year", v.url AS "vehicle.url",
		m.id AS "mechanic.id", m.profile_id AS "mechanic.profile_id", m.name AS "mechanic.name",
		m.email AS "mechanic.email", m.contact_number AS "mechanic.contact_number", m.url AS "mechanic.url",
		u.id AS "customer.id", u.role AS "customer.role", u.full_name AS "customer.full_name",
		u.email AS "customer.email", u.contact_number AS "customer.contact_number"
	FROM bookings b
	JOIN parts p ON p.id = b.part_id
	JOIN vehicles v ON v.id = p.vehicle_id
	JOIN mechanics m ON m.id = b.mechanic_id
	JOIN user_profiles u ON u.id = b.user_id`

// ListActiveBookingsForVehicle returns the active bookings on a vehicle's parts
func (s *Store) ListActiveBookingsForVehicle(ctx context.Context, vehicleID int64) ([]models.Booking, error) {
	query := `
		SELECT b.id, b.part_id, b.quantity, b.status, b.booking_group_id
		FROM bookings b
		JOIN parts p ON p.id = b.part_id
		WHERE p.vehicle_id = $1 AND b.status = ANY($2)`

	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings, query, vehicleID, pq.Array(models.StatusStrings(models.ActiveStatuses)))
	return bookings, err
}

// ListActiveBookingsForParts returns the active bookings on the given parts
func (s *Store) ListActiveBookingsForParts(ctx context.Context, partIDs []int64) ([]models.Booking, error) {
	bookings := []models.Booking{}
	if len(partIDs) == 0 {
		return bookings, nil
	}

	query := `
		SELECT id, part_id, quantity, status, booking_group_id
		FROM bookings
		WHERE part_id = ANY($1) AND status = ANY($2)`

	err := s.db.SelectContext(ctx, &bookings, query, pq.Array(partIDs), pq.Array(models.StatusStrings(models.ActiveStatuses)))
	return bookings, err
}

// ListBookingDetails returns joined booking rows ordered by group
func (s *Store) ListBookingDetails(ctx context.Context, q BookingQuery) ([]models.BookingDetail, error) {
	conditions := []string{}
	args := []interface{}{}

	if q.UserID != "" {
		args = append(args, q.UserID)
		conditions = append(conditions, fmt.Sprintf("b.user_id = $%d", len(args)))
	}
	if q.MechanicID != 0 {
		args = append(args, q.MechanicID)
		conditions = append(conditions, fmt.Sprintf("b.mechanic_id = $%d", len(args)))
	}
	if q.GroupID != 0 {
		args = append(args, q.GroupID)
		conditions = append(conditions, fmt.Sprintf("b.booking_group_id = $%d", len(args)))
	}

	query := bookingDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.booking_group_id, b.id"

	details := []models.BookingDetail{}
	err := s.db.SelectContext(ctx, &details, query, args...)
	return details, err
}

// GetGroupBookings returns the raw booking rows of one group
func (s *Store) GetGroupBookings(ctx context.Context, groupID int64) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE booking_group_id = $1 ORDER BY id", groupID)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("booking group %d: %w", groupID, ErrNotFound)
	}
	return bookings, nil
}

// CreateBookingGroup validates stock under row locks and writes a new group
// with one pending booking per line, all in one transaction.
func (s *Store) CreateBookingGroup(ctx context.Context, in ReservationInput) (*Reservation, error) {
	var out *Reservation
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := reserveStock(ctx, tx, in, 0); err != nil {
			return err
		}

		var group models.BookingGroup
		err := tx.GetContext(ctx, &group,
			"INSERT INTO booking_groups (user_id) VALUES ($1) RETURNING id, user_id, created_at", in.UserID)
		if err != nil {
			return fmt.Errorf("failed to create booking group: %w", err)
		}

		bookings, err := insertBookings(ctx, tx, group.ID, in)
		if err != nil {
			return err
		}

		out = &Reservation{Group: group, Bookings: bookings}
		return nil
	})
	return out, err
}

// ReplaceBookingGroup swaps the bookings of a pending group for the new lines.
// The group's own reservation is credited back before stock is checked.
func (s *Store) ReplaceBookingGroup(ctx context.Context, groupID int64, in ReservationInput) (*Reservation, error) {
	var out *Reservation
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var group models.BookingGroup
		err := tx.GetContext(ctx, &group,
			"SELECT id, user_id, created_at FROM booking_groups WHERE id = $1 FOR UPDATE", groupID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("booking group %d: %w", groupID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock booking group: %w", err)
		}

		// TransitionGroupStatus takes the same row locks, so a status change
		// and a replace of one group never interleave.
		var statuses []string
		err = tx.SelectContext(ctx, &statuses,
			"SELECT status FROM bookings WHERE booking_group_id = $1 ORDER BY id FOR UPDATE", groupID)
		if err != nil {
			return fmt.Errorf("failed to lock bookings: %w", err)
		}
		if len(statuses) == 0 {
			return fmt.Errorf("booking group %d: %w", groupID, ErrStatusMismatch)
		}
		for _, status := range statuses {
			if models.BookingStatus(status) != models.BookingStatusPending {
				return fmt.Errorf("booking group %d: %w", groupID, ErrStatusMismatch)
			}
		}

		if err := reserveStock(ctx, tx, in, groupID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE booking_group_id = $1", groupID); err != nil {
			return fmt.Errorf("failed to delete bookings: %w", err)
		}

		bookings, err := insertBookings(ctx, tx, groupID, in)
		if err != nil {
			return err
		}

		out = &Reservation{Group: group, Bookings: bookings}
		return nil
	})
	return out, err
}

// TransitionGroupStatus moves every row of a group from one status to another.
// It fails with ErrStatusMismatch unless all rows are currently in from.
func (s *Store) TransitionGroupStatus(ctx context.Context, groupID int64, from, to models.BookingStatus) (int64, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var statuses []string
		err := tx.SelectContext(ctx, &statuses,
			"SELECT status FROM bookings WHERE booking_group_id = $1 ORDER BY id FOR UPDATE", groupID)
		if err != nil {
			return fmt.Errorf("failed to lock bookings: %w", err)
		}
		if len(statuses) == 0 {
			return fmt.Errorf("booking group %d: %w", groupID, ErrNotFound)
		}
		for _, st := range statuses {
			if models.BookingStatus(st) != from {
				return fmt.Errorf("booking group %d: %w", groupID, ErrStatusMismatch)
			}
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE bookings SET status = $1, updated_at = NOW() WHERE booking_group_id = $2",
			string(to), groupID)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// reserveStock locks the requested part rows and checks that active
// reservations, excluding creditGroupID, leave room for every line.
func reserveStock(ctx context.Context, tx *sqlx.Tx, in ReservationInput, creditGroupID int64) error {
	requested := mergeLines(in.Lines)
	if len(requested) == 0 {
		return errors.New("reservation has no lines")
	}

	partIDs := make([]int64, 0, len(requested))
	for id := range requested {
		partIDs = append(partIDs, id)
	}
	sort.Slice(partIDs, func(i, j int) bool { return partIDs[i] < partIDs[j] })

	var locked []struct {
		ID    int64 `db:"id"`
		Stock int   `db:"stock"`
	}
	err := tx.SelectContext(ctx, &locked,
		"SELECT id, stock FROM parts WHERE id = ANY($1) ORDER BY id FOR UPDATE", pq.Array(partIDs))
	if err != nil {
		return fmt.Errorf("failed to lock parts: %w", err)
	}
	if len(locked) != len(partIDs) {
		return fmt.Errorf("some parts: %w", ErrNotFound)
	}

	var reserved []struct {
		PartID   int64 `db:"part_id"`
		Quantity int   `db:"reserved"`
	}
	err = tx.SelectContext(ctx, &reserved, `
		SELECT part_id, COALESCE(SUM(quantity), 0) AS reserved
		FROM bookings
		WHERE part_id = ANY($1) AND status = ANY($2) AND booking_group_id <> $3
		GROUP BY part_id`,
		pq.Array(partIDs), pq.Array(models.StatusStrings(models.ActiveStatuses)), creditGroupID)
	if err != nil {
		return fmt.Errorf("failed to sum reservations: %w", err)
	}

	reservedByPart := make(map[int64]int, len(reserved))
	for _, r := range reserved {
		reservedByPart[r.PartID] = r.Quantity
	}

	var shortages []Shortage
	for _, p := range locked {
		available := p.Stock - reservedByPart[p.ID]
		if available < 0 {
			available = 0
		}
		if requested[p.ID] > available {
			shortages = append(shortages, Shortage{PartID: p.ID, Requested: requested[p.ID], Available: available})
		}
	}
	if len(shortages) > 0 {
		return &StockError{Shortages: shortages}
	}

	if in.EnforceLeave {
		var onLeave bool
		err := tx.GetContext(ctx, &onLeave,
			"SELECT EXISTS(SELECT 1 FROM mechanic_unavailable_days WHERE mechanic_id = $1 AND date = $2)",
			in.MechanicID, in.Date.Format(DateLayout))
		if err != nil {
			return fmt.Errorf("failed to check mechanic leave: %w", err)
		}
		if onLeave {
			return ErrMechanicOnLeave
		}
	}

	return nil
}

func insertBookings(ctx context.Context, tx *sqlx.Tx, groupID int64, in ReservationInput) ([]models.Booking, error) {
	query := `
		INSERT INTO bookings (part_id, mechanic_id, user_id, quantity, date, status, booking_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	bookings := make([]models.Booking, 0, len(in.Lines))
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			continue
		}
		b := models.Booking{
			PartID:         line.PartID,
			MechanicID:     in.MechanicID,
			UserID:         in.UserID,
			Quantity:       line.Quantity,
			Date:           in.Date,
			Status:         models.BookingStatusPending,
			BookingGroupID: groupID,
		}
		err := tx.QueryRowxContext(ctx, query,
			b.PartID, b.MechanicID, b.UserID, b.Quantity, in.Date.Format(DateLayout), string(b.Status), groupID,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create booking for part %d: %w", line.PartID, err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func mergeLines(lines []models.CartLine) map[int64]int {
	out := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity > 0 {
			out[l.PartID] += l.Quantity
		}
	}
	return out
}
