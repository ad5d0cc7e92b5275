package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"putik-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ListVehicles retrieves all vehicles
func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	err := s.db.SelectContext(ctx, &vehicles, "SELECT * FROM vehicles ORDER BY make, model, year, id")
	return vehicles, err
}

// GetVehicle retrieves a vehicle by ID
func (s *Store) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	var v models.Vehicle
	err := s.db.GetContext(ctx, &v, "SELECT * FROM vehicles WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicle inserts a vehicle and fills its ID
func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (name, make, model, year, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &v.ID, query, v.Name, v.Make, v.Model, v.Year, v.URL)
}

// UpdateVehicle overwrites a vehicle
func (s *Store) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE vehicles SET name = $1, make = $2, model = $3, year = $4, url = $5 WHERE id = $6",
		v.Name, v.Make, v.Model, v.Year, v.URL, v.ID)
	return expectOne(res, err, "vehicle", v.ID)
}

// DeleteVehicle removes a vehicle and, by cascade, its parts
func (s *Store) DeleteVehicle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM vehicles WHERE id = $1", id)
	return expectOne(res, err, "vehicle", id)
}

// ListTypes retrieves all part types
func (s *Store) ListTypes(ctx context.Context) ([]models.Type, error) {
	types := []models.Type{}
	err := s.db.SelectContext(ctx, &types, "SELECT * FROM types ORDER BY name")
	return types, err
}

// CreateType inserts a part type
func (s *Store) CreateType(ctx context.Context, t *models.Type) error {
	err := s.db.GetContext(ctx, &t.ID, "INSERT INTO types (name) VALUES ($1) RETURNING id", t.Name)
	if isUniqueViolation(err) {
		return fmt.Errorf("type %q: %w", t.Name, ErrAlreadyExists)
	}
	return err
}

// UpdateType renames a part type
func (s *Store) UpdateType(ctx context.Context, t *models.Type) error {
	res, err := s.db.ExecContext(ctx, "UPDATE types SET name = $1 WHERE id = $2", t.Name, t.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("type %q: %w", t.Name, ErrAlreadyExists)
	}
	return expectOne(res, err, "type", t.ID)
}

// DeleteType removes a part type that no part references
func (s *Store) DeleteType(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM types WHERE id = $1", id)
	return expectOne(res, err, "type", id)
}

// ListParts retrieves the parts of a vehicle that match filter
func (s *Store) ListParts(ctx context.Context, vehicleID int64, filter models.CatalogFilter) ([]models.Part, error) {
	query := `
		SELECT * FROM parts
		WHERE vehicle_id = $1
		  AND ($2::text = '' OR name ILIKE '%' || $2::text || '%' OR description ILIKE '%' || $2::text || '%')
		  AND (cardinality($3::bigint[]) = 0 OR type_id = ANY($3))
		ORDER BY name, id`

	typeIDs := filter.TypeIDs
	if typeIDs == nil {
		typeIDs = []int64{}
	}

	parts := []models.Part{}
	err := s.db.SelectContext(ctx, &parts, query, vehicleID, strings.TrimSpace(filter.Search), pq.Array(typeIDs))
	return parts, err
}

// GetPart retrieves a part by ID
func (s *Store) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	var p models.Part
	err := s.db.GetContext(ctx, &p, "SELECT * FROM parts WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPartsByIDs retrieves multiple parts by IDs
func (s *Store) GetPartsByIDs(ctx context.Context, ids []int64) ([]models.Part, error) {
	if len(ids) == 0 {
		return []models.Part{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM parts WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var parts []models.Part
	err = s.db.SelectContext(ctx, &parts, query, args...)
	return parts, err
}

// CreatePart inserts a part
func (s *Store) CreatePart(ctx context.Context, p *models.Part) error {
	query := `
		INSERT INTO parts (name, description, price, stock, url, vehicle_id, type_id)
		VALUES (:name, :description, :price, :stock, :url, :vehicle_id, :type_id)
		RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, query, p)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&p.ID)
	}
	return rows.Err()
}

// UpdatePart overwrites a part, stock included
func (s *Store) UpdatePart(ctx context.Context, p *models.Part) error {
	query := `
		UPDATE parts SET name = :name, description = :description, price = :price,
			stock = :stock, url = :url, vehicle_id = :vehicle_id, type_id = :type_id
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, p)
	return expectOne(res, err, "part", p.ID)
}

// DeletePart removes a part
func (s *Store) DeletePart(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM parts WHERE id = $1", id)
	return expectOne(res, err, "part", id)
}

func expectOne(res sql.Result, err error, entity string, id int64) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrInUse)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
