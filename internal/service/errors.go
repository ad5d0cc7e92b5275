package service

import (
	"errors"

	"putik-service/internal/store"
)

// Store-level failures surface unchanged so callers can match them with errors.Is
var (
	ErrNotFound      = store.ErrNotFound
	ErrAlreadyExists = store.ErrAlreadyExists
	ErrInUse         = store.ErrInUse
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrPastDate            = errors.New("booking date is in the past")
	ErrInvalidStep         = errors.New("checkout is not at the required step")
	ErrMechanicUnavailable = errors.New("mechanic is unavailable on the selected date")
	ErrForbidden           = errors.New("not allowed to act on this booking")
	ErrNotEditable         = errors.New("only pending bookings can be edited")
	ErrVehicleMismatch     = errors.New("part does not fit the selected vehicle")
	ErrNoVehicle           = errors.New("no vehicle selected")
	ErrInvalidTransition   = errors.New("booking group is not in the required status")
	ErrUnknownAction       = errors.New("unknown booking action")
	ErrBusy                = errors.New("another checkout is in progress")
	ErrInvalidInput        = errors.New("invalid input")
)

// StockError lists the parts a confirmation could not reserve
type StockError = store.StockError
