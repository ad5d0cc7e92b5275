package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DateLayout is how calendar dates travel to DATE columns
const DateLayout = "2006-01-02"

var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyExists   = errors.New("record already exists")
	ErrStatusMismatch  = errors.New("booking group is not in the expected status")
	ErrMechanicOnLeave = errors.New("mechanic is unavailable on the selected date")
	ErrInUse           = errors.New("record is still referenced")
)

// Shortage describes one part that cannot cover the requested quantity
type Shortage struct {
	PartID    int64 `json:"part_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// StockError is returned when a reservation would oversell at least one part
type StockError struct {
	Shortages []Shortage
}

func (e *StockError) Error() string {
	if len(e.Shortages) == 1 {
		s := e.Shortages[0]
		return fmt.Sprintf("insufficient stock: part=%d available=%d requested=%d", s.PartID, s.Available, s.Requested)
	}
	return fmt.Sprintf("insufficient stock for %d parts", len(e.Shortages))
}

type Store struct {
	db *sqlx.DB
}

// Options tunes the connection pool
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// NewStore creates a new database store
func NewStore(databaseURL string, opts Options) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection for readiness probes
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing only when fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
