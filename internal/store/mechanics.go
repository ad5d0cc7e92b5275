package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"putik-service/internal/models"
)

// ListMechanics retrieves all mechanics
func (s *Store) ListMechanics(ctx context.Context) ([]models.Mechanic, error) {
	mechanics := []models.Mechanic{}
	err := s.db.SelectContext(ctx, &mechanics, "SELECT * FROM mechanics ORDER BY name, id")
	return mechanics, err
}

// GetMechanic retrieves a mechanic by ID
func (s *Store) GetMechanic(ctx context.Context, id int64) (*models.Mechanic, error) {
	var m models.Mechanic
	err := s.db.GetContext(ctx, &m, "SELECT * FROM mechanics WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mechanic %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMechanicByProfile resolves the mechanic record of an auth identity
func (s *Store) GetMechanicByProfile(ctx context.Context, profileID string) (*models.Mechanic, error) {
	var m models.Mechanic
	err := s.db.GetContext(ctx, &m, "SELECT * FROM mechanics WHERE profile_id = $1", profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mechanic for profile %s: %w", profileID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMechanic inserts a mechanic
func (s *Store) CreateMechanic(ctx context.Context, m *models.Mechanic) error {
	query := `
		INSERT INTO mechanics (profile_id, name, email, contact_number, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := s.db.GetContext(ctx, &m.ID, query, m.ProfileID, m.Name, m.Email, m.ContactNumber, m.URL)
	if isUniqueViolation(err) {
		return fmt.Errorf("mechanic profile: %w", ErrAlreadyExists)
	}
	return err
}

// UpdateMechanic overwrites a mechanic
func (s *Store) UpdateMechanic(ctx context.Context, m *models.Mechanic) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE mechanics SET profile_id = $1, name = $2, email = $3, contact_number = $4, url = $5 WHERE id = $6",
		m.ProfileID, m.Name, m.Email, m.ContactNumber, m.URL, m.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("mechanic profile: %w", ErrAlreadyExists)
	}
	return expectOne(res, err, "mechanic", m.ID)
}

// DeleteMechanic removes a mechanic without bookings
func (s *Store) DeleteMechanic(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM mechanics WHERE id = $1", id)
	return expectOne(res, err, "mechanic", id)
}

// ListLeaves returns a mechanic's unavailable days, optionally within [from, to]
func (s *Store) ListLeaves(ctx context.Context, mechanicID int64, from, to *time.Time) ([]models.MechanicUnavailableDay, error) {
	query := `
		SELECT * FROM mechanic_unavailable_days
		WHERE mechanic_id = $1
		  AND ($2::date IS NULL OR date >= $2::date)
		  AND ($3::date IS NULL OR date <= $3::date)
		ORDER BY date`

	leaves := []models.MechanicUnavailableDay{}
	err := s.db.SelectContext(ctx, &leaves, query, mechanicID, nullableDate(from), nullableDate(to))
	return leaves, err
}

// ListLeavesOn returns every unavailable day recorded for date
func (s *Store) ListLeavesOn(ctx context.Context, date time.Time) ([]models.MechanicUnavailableDay, error) {
	leaves := []models.MechanicUnavailableDay{}
	err := s.db.SelectContext(ctx, &leaves,
		"SELECT * FROM mechanic_unavailable_days WHERE date = $1", date.Format(DateLayout))
	return leaves, err
}

// AddLeave records an unavailable day; a duplicate date yields ErrAlreadyExists
func (s *Store) AddLeave(ctx context.Context, leave *models.MechanicUnavailableDay) error {
	query := `
		INSERT INTO mechanic_unavailable_days (mechanic_id, date, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (mechanic_id, date) DO NOTHING
		RETURNING id`

	err := s.db.GetContext(ctx, &leave.ID, query, leave.MechanicID, leave.Date.Format(DateLayout), leave.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("leave on %s: %w", leave.Date.Format(DateLayout), ErrAlreadyExists)
	}
	return err
}

// DeleteLeave removes one of a mechanic's unavailable days
func (s *Store) DeleteLeave(ctx context.Context, mechanicID, leaveID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM mechanic_unavailable_days WHERE id = $1 AND mechanic_id = $2", leaveID, mechanicID)
	return expectOne(res, err, "leave", leaveID)
}

// GetUserProfile retrieves the profile of an auth identity
func (s *Store) GetUserProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.GetContext(ctx, &p,
		"SELECT id, role, full_name, email, contact_number FROM user_profiles WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(DateLayout)
}
