package models

import "time"

// ReservationStatus is the state of a reservation in its lifecycle.
// Legal transitions: pending -> delivered -> returned, with extended
// reachable only from delivered (or extended itself), and cancelled
// reachable only from pending.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationDelivered ReservationStatus = "delivered"
	ReservationExtended  ReservationStatus = "extended"
	ReservationReturned  ReservationStatus = "returned"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Out reports whether the reserved items are currently with the requester.
func (s ReservationStatus) Out() bool {
	return s == ReservationDelivered || s == ReservationExtended
}

// Terminal reports whether the reservation can no longer change state.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationReturned || s == ReservationCancelled
}

// Reservation is a time-boxed loan of items to a member.
type Reservation struct {
	ID             string            `json:"id" db:"id"`
	OrganizationID string            `json:"organization_id" db:"organization_id"`
	RequesterID    string            `json:"requester_id" db:"requester_id"`
	Status         ReservationStatus `json:"status" db:"status"`
	Notes          string            `json:"notes,omitempty" db:"notes"`
	StartDate      time.Time         `json:"start_date" db:"start_date"`
	DueDate        time.Time         `json:"due_date" db:"due_date"`
	DeliveredBy    *string           `json:"delivered_by,omitempty" db:"delivered_by"`
	DeliveredAt    *time.Time        `json:"delivered_at,omitempty" db:"delivered_at"`
	ReturnedBy     *string           `json:"returned_by,omitempty" db:"returned_by"`
	ReturnedAt     *time.Time        `json:"returned_at,omitempty" db:"returned_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`

	// Joined child rows (not always populated).
	Items      []ReservationItem      `json:"items,omitempty" db:"-"`
	Extensions []ReservationExtension `json:"extensions,omitempty" db:"-"`
}

// Reservation item sources.
const (
	ReservationItemRequested  = "requested"
	ReservationItemAdditional = "additional"
)

// InspectionOutcome is the per-item condition recorded at return time.
type InspectionOutcome string

const (
	InspectionOK      InspectionOutcome = "ok"
	InspectionDamaged InspectionOutcome = "damaged"
	InspectionLost    InspectionOutcome = "lost"
)

// Valid reports whether the outcome is one of the known values.
func (o InspectionOutcome) Valid() bool {
	switch o {
	case InspectionOK, InspectionDamaged, InspectionLost:
		return true
	}
	return false
}

// ReservationItem binds one item to a reservation. Source records whether
// the binding came from the original request or was added at delivery.
// Inspection fields are filled when the reservation is returned.
type ReservationItem struct {
	ID                string             `json:"id" db:"id"`
	ReservationID     string             `json:"reservation_id" db:"reservation_id"`
	ItemID            string             `json:"item_id" db:"item_id"`
	Source            string             `json:"source" db:"source"`
	InspectionOutcome *InspectionOutcome `json:"inspection_outcome,omitempty" db:"inspection_outcome"`
	InspectionNotes   string             `json:"inspection_notes,omitempty" db:"inspection_notes"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// ReservationExtension is one append-only entry in a reservation's
// extension history. NewDueDate is always PreviousDueDate plus Days,
// so sequential extensions stack.
type ReservationExtension struct {
	ID              string    `json:"id" db:"id"`
	ReservationID   string    `json:"reservation_id" db:"reservation_id"`
	ExtendedBy      string    `json:"extended_by" db:"extended_by"`
	Days            int       `json:"days" db:"days"`
	Motivation      string    `json:"motivation,omitempty" db:"motivation"`
	PreviousDueDate time.Time `json:"previous_due_date" db:"previous_due_date"`
	NewDueDate      time.Time `json:"new_due_date" db:"new_due_date"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
