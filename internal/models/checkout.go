package models

import "time"

// CheckoutStep is the position of a session in the booking wizard
type CheckoutStep string

// Wizard steps. A successful confirm resets the session to idle.
const (
	CheckoutStepIdle             CheckoutStep = "idle"
	CheckoutStepDateSelected     CheckoutStep = "date_selected"
	CheckoutStepMechanicSelected CheckoutStep = "mechanic_selected"
	CheckoutStepConfirmed        CheckoutStep = "confirmed"
)

// CheckoutSession is the per-user wizard state kept next to the cart
type CheckoutSession struct {
	VehicleID   int64        `json:"vehicle_id,omitempty"`
	EditGroupID *int64       `json:"edit_group_id,omitempty"`
	Step        CheckoutStep `json:"step"`
	Date        *time.Time   `json:"date,omitempty"`
	MechanicID  *int64       `json:"mechanic_id,omitempty"`
}

// Reset discards the wizard choices but keeps the cart scope
func (s *CheckoutSession) Reset() {
	s.Step = CheckoutStepIdle
	s.Date = nil
	s.MechanicID = nil
}

// CartLine is one stored cart entry
type CartLine struct {
	PartID   int64 `json:"part_id"`
	Quantity int   `json:"quantity"`
}

// MechanicOption is a mechanic as offered by the wizard for a chosen date
type MechanicOption struct {
	Mechanic
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
