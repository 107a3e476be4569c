package models

import "time"

// ItemStatus is the lifecycle state of an inventory item.
type ItemStatus string

const (
	ItemStatusAvailable    ItemStatus = "available"
	ItemStatusReserved     ItemStatus = "reserved"
	ItemStatusMaintenance  ItemStatus = "maintenance"
	ItemStatusOnLoan       ItemStatus = "on_loan"
	ItemStatusDiscarded    ItemStatus = "discarded"
	ItemStatusConsumed     ItemStatus = "consumed"
	ItemStatusDisassembled ItemStatus = "disassembled"
)

// Terminal reports whether an item in this status can no longer change state.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemStatusDiscarded, ItemStatusConsumed, ItemStatusDisassembled:
		return true
	}
	return false
}

// Item represents a physical or logical inventory unit owned by one organization.
// Identifier is the human-facing code, unique within the organization.
// Value is the remaining value in the item's unit; subdivision and
// deterioration decrement it.
type Item struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Identifier     string     `json:"identifier" db:"identifier"`
	Name           string     `json:"name" db:"name"`
	CategoryID     *string    `json:"category_id,omitempty" db:"category_id"`
	Status         ItemStatus `json:"status" db:"status"`
	Unit           string     `json:"unit,omitempty" db:"unit"`
	Value          int64      `json:"value" db:"value"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Deleted reports whether the item has been soft-deleted.
func (i *Item) Deleted() bool {
	return i.DeletedAt != nil
}

// ItemComponent relates a composite item to one of its components:
// the parent owns Quantity units of the component item.
type ItemComponent struct {
	ID              string    `json:"id" db:"id"`
	ParentItemID    string    `json:"parent_item_id" db:"parent_item_id"`
	ComponentItemID string    `json:"component_item_id" db:"component_item_id"`
	Quantity        int       `json:"quantity" db:"quantity"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Category groups items within an organization.
type Category struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
