package models

import (
	"encoding/json"
	"time"
)

// TransformationType identifies the kind of structural change a
// transformation applied to inventory.
type TransformationType string

const (
	TransformationSubdivide   TransformationType = "subdivide"
	TransformationDonate      TransformationType = "donate"
	TransformationDeteriorate TransformationType = "deteriorate"
	TransformationDisassemble TransformationType = "disassemble"
)

// Transformation is an immutable audit record of a state change applied to
// one or more items. Records are only ever inserted, never updated.
type Transformation struct {
	ID             string             `json:"id" db:"id"`
	OrganizationID string             `json:"organization_id" db:"organization_id"`
	Type           TransformationType `json:"type" db:"type"`
	ActorID        string             `json:"actor_id" db:"actor_id"`
	Reason         string             `json:"reason,omitempty" db:"reason"`
	Notes          string             `json:"notes,omitempty" db:"notes"`
	SourceItemIDs  []string           `json:"source_item_ids" db:"source_item_ids"`
	ResultItemIDs  []string           `json:"result_item_ids" db:"result_item_ids"`
	Details        json.RawMessage    `json:"details,omitempty" db:"details"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

// SubdivisionEntry describes one child item requested from a subdivision.
type SubdivisionEntry struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name,omitempty"`
	Value      int64  `json:"value"`
}

// SubdivideDetails is the Details payload for subdivide transformations.
type SubdivideDetails struct {
	Unit    string             `json:"unit,omitempty"`
	Entries []SubdivisionEntry `json:"entries"`
}

// DonateDetails is the Details payload for donate transformations.
type DonateDetails struct {
	Location    string   `json:"location,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

// DeteriorateDetails is the Details payload for deteriorate transformations.
type DeteriorateDetails struct {
	OriginalValue  int64  `json:"original_value"`
	DamagedValue   int64  `json:"damaged_value"`
	RemainingValue int64  `json:"remaining_value"`
	Location       string `json:"location,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Unit           string `json:"unit,omitempty"`
}

// DisassembledComponent records one component released by a disassembly.
type DisassembledComponent struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// DisassembleDetails is the Details payload for disassemble transformations.
type DisassembleDetails struct {
	Components []DisassembledComponent `json:"components"`
}
