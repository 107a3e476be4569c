package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

// TransformationService implements the item transformation use cases.
// Every use case runs its read-check-write sequence inside one store
// transaction with the source rows locked, so concurrent calls cannot
// both spend the same remaining value and failures leave no partial
// writes behind.
type TransformationService struct {
	store database.Store
}

// NewTransformationService creates a TransformationService backed by store.
func NewTransformationService(store database.Store) *TransformationService {
	return &TransformationService{store: store}
}

// lockActiveItem fetches an item under a row lock and rejects missing or
// soft-deleted items with the matching domain error.
func lockActiveItem(ctx context.Context, tx database.Store, orgID, itemID string) (*models.Item, error) {
	item, err := tx.GetItemForUpdate(ctx, orgID, itemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errItemNotFound(itemID)
		}
		return nil, fmt.Errorf("fetching item %s: %w", itemID, err)
	}
	if item.Deleted() {
		return nil, errItemDeleted(itemID)
	}
	return item, nil
}

func marshalDetails(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling transformation details: %w", err)
	}
	return data, nil
}

// GetTransformation fetches one audit record by id.
func (s *TransformationService) GetTransformation(ctx context.Context, actor *AuthContext, id string) (*models.Transformation, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing transformations")
	}
	tf, err := s.store.GetTransformation(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errTransformationNotFound(id)
		}
		return nil, err
	}
	return tf, nil
}

// ListTransformations lists the organization's audit trail, newest first.
func (s *TransformationService) ListTransformations(ctx context.Context, actor *AuthContext, f database.TransformationFilter) ([]models.Transformation, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing transformations")
	}
	return s.store.ListTransformations(ctx, actor.OrganizationID, f)
}

// SubdivideInput is the request for SubdivideItem.
type SubdivideInput struct {
	ItemID  string                    `json:"item_id"`
	Entries []models.SubdivisionEntry `json:"subdivisions"`
	Unit    string                    `json:"unit,omitempty"`
	Reason  string                    `json:"reason,omitempty"`
	Notes   string                    `json:"notes,omitempty"`
}

// SubdivideItem splits part of a source item's value into newly created
// child items. The children inherit the source's organization and
// category; the source's remaining value is decremented by the allocated
// sum and the source becomes consumed when it reaches zero. All writes
// are atomic: a failed entry (for example an identifier collision) leaves
// no children behind.
func (s *TransformationService) SubdivideItem(ctx context.Context, actor *AuthContext, in SubdivideInput) (*models.Transformation, error) {
	if !actor.CanPerformTransformations() {
		return nil, errForbidden("performing transformations")
	}
	if len(in.Entries) == 0 {
		return nil, errValidation("at least one subdivision entry is required")
	}

	var total int64
	seen := make(map[string]bool, len(in.Entries))
	for _, e := range in.Entries {
		if e.Identifier == "" {
			return nil, errValidation("subdivision entries require an identifier")
		}
		if e.Value <= 0 {
			return nil, errValidation("subdivision value must be positive, got %d for %q", e.Value, e.Identifier)
		}
		if seen[e.Identifier] {
			return nil, errDuplicateIdentifier(e.Identifier)
		}
		seen[e.Identifier] = true
		if e.Value > math.MaxInt64-total {
			total = math.MaxInt64
		} else {
			total += e.Value
		}
	}

	var tf *models.Transformation
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		source, err := lockActiveItem(ctx, tx, actor.OrganizationID, in.ItemID)
		if err != nil {
			return err
		}
		// Subtract entry by entry so the comparison cannot wrap when the
		// requested values sum past the int64 range.
		remaining := source.Value
		for _, e := range in.Entries {
			if e.Value > remaining {
				return errInsufficientValue(source.Value, total)
			}
			remaining -= e.Value
		}

		unit := in.Unit
		if unit == "" {
			unit = source.Unit
		}

		resultIDs := make([]string, 0, len(in.Entries))
		for _, e := range in.Entries {
			name := e.Name
			if name == "" {
				name = source.Name
			}
			child := &models.Item{
				OrganizationID: source.OrganizationID,
				Identifier:     e.Identifier,
				Name:           name,
				CategoryID:     source.CategoryID,
				Status:         models.ItemStatusAvailable,
				Unit:           unit,
				Value:          e.Value,
			}
			if err := tx.CreateItem(ctx, child); err != nil {
				if errors.Is(err, database.ErrDuplicate) {
					return errDuplicateIdentifier(e.Identifier)
				}
				return fmt.Errorf("creating child item %q: %w", e.Identifier, err)
			}
			resultIDs = append(resultIDs, child.ID)
		}

		source.Value = remaining
		if source.Value == 0 {
			source.Status = models.ItemStatusConsumed
		}
		if err := tx.UpdateItem(ctx, source); err != nil {
			return fmt.Errorf("updating source item: %w", err)
		}

		details, err := marshalDetails(models.SubdivideDetails{Unit: unit, Entries: in.Entries})
		if err != nil {
			return err
		}
		tf = &models.Transformation{
			OrganizationID: actor.OrganizationID,
			Type:           models.TransformationSubdivide,
			ActorID:        actor.UserID,
			Reason:         in.Reason,
			Notes:          in.Notes,
			SourceItemIDs:  []string{source.ID},
			ResultItemIDs:  resultIDs,
			Details:        details,
		}
		return tx.CreateTransformation(ctx, tf)
	})
	if err != nil {
		return nil, err
	}
	return tf, nil
}

// DonateInput is the request for DonateItems.
type DonateInput struct {
	ItemIDs     []string `json:"item_ids"`
	Location    string   `json:"location,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

// DonateItems hands a batch of items over to an external party. When
// Recoverable is false the items are discarded and soft-deleted; when
// true they move to the on-loan status instead. One invalid item id
// rejects the whole batch.
func (s *TransformationService) DonateItems(ctx context.Context, actor *AuthContext, in DonateInput) (*models.Transformation, error) {
	if !actor.CanPerformTransformations() {
		return nil, errForbidden("performing transformations")
	}
	if len(in.ItemIDs) == 0 {
		return nil, errEmptyItemList()
	}

	var tf *models.Transformation
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		now := time.Now().UTC()
		for _, id := range in.ItemIDs {
			item, err := lockActiveItem(ctx, tx, actor.OrganizationID, id)
			if err != nil {
				return err
			}

			if in.Recoverable {
				item.Status = models.ItemStatusOnLoan
				if err := tx.UpdateItem(ctx, item); err != nil {
					return fmt.Errorf("updating item %s: %w", id, err)
				}
				continue
			}

			item.Status = models.ItemStatusDiscarded
			if err := tx.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("updating item %s: %w", id, err)
			}
			if err := tx.SoftDeleteItem(ctx, actor.OrganizationID, id, now); err != nil {
				return fmt.Errorf("deleting item %s: %w", id, err)
			}
		}

		details, err := marshalDetails(models.DonateDetails{
			Location:    in.Location,
			Recipients:  in.Recipients,
			Recoverable: in.Recoverable,
		})
		if err != nil {
			return err
		}
		tf = &models.Transformation{
			OrganizationID: actor.OrganizationID,
			Type:           models.TransformationDonate,
			ActorID:        actor.UserID,
			Reason:         in.Reason,
			Notes:          in.Notes,
			SourceItemIDs:  in.ItemIDs,
			Details:        details,
		}
		return tx.CreateTransformation(ctx, tf)
	})
	if err != nil {
		return nil, err
	}
	return tf, nil
}

// DeteriorateInput is the request for DeteriorateItem.
type DeteriorateInput struct {
	ItemID         string `json:"item_id"`
	OriginalValue  int64  `json:"original_value"`
	DamagedValue   int64  `json:"damaged_value"`
	RemainingValue int64  `json:"remaining_value"`
	Location       string `json:"location,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Unit           string `json:"unit,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// DeteriorateItem writes off the damaged portion of an item. The source
// keeps the remaining value (and is discarded when that reaches zero);
// a new item representing the damaged portion is created already
// discarded, and one transformation record links both.
func (s *TransformationService) DeteriorateItem(ctx context.Context, actor *AuthContext, in DeteriorateInput) (*models.Transformation, error) {
	if !actor.CanPerformTransformations() {
		return nil, errForbidden("performing transformations")
	}
	if in.OriginalValue < 0 || in.DamagedValue < 0 || in.RemainingValue < 0 {
		return nil, errValidation("values must not be negative")
	}
	// Rearranged so the comparison cannot wrap for large inputs; both
	// operands are known non-negative at this point.
	if in.DamagedValue > in.OriginalValue-in.RemainingValue {
		return nil, errValueMismatch(in.OriginalValue, in.DamagedValue, in.RemainingValue)
	}

	var tf *models.Transformation
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		source, err := lockActiveItem(ctx, tx, actor.OrganizationID, in.ItemID)
		if err != nil {
			return err
		}
		if in.OriginalValue != source.Value {
			return errValidation("original value %d does not match the item's recorded value %d",
				in.OriginalValue, source.Value)
		}

		now := time.Now().UTC()
		source.Value = in.RemainingValue
		if source.Value == 0 {
			source.Status = models.ItemStatusDiscarded
			source.DeletedAt = &now
		}
		if err := tx.UpdateItem(ctx, source); err != nil {
			return fmt.Errorf("updating source item: %w", err)
		}

		unit := in.Unit
		if unit == "" {
			unit = source.Unit
		}
		damaged := &models.Item{
			OrganizationID: source.OrganizationID,
			Identifier:     fmt.Sprintf("%s-dmg-%s", source.Identifier, uuid.NewString()[:8]),
			Name:           source.Name,
			CategoryID:     source.CategoryID,
			Status:         models.ItemStatusDiscarded,
			Unit:           unit,
			Value:          in.DamagedValue,
			Notes:          in.Reason,
			DeletedAt:      &now,
		}
		if err := tx.CreateItem(ctx, damaged); err != nil {
			return fmt.Errorf("creating damaged item: %w", err)
		}

		details, err := marshalDetails(models.DeteriorateDetails{
			OriginalValue:  in.OriginalValue,
			DamagedValue:   in.DamagedValue,
			RemainingValue: in.RemainingValue,
			Location:       in.Location,
			Reason:         in.Reason,
			Unit:           unit,
		})
		if err != nil {
			return err
		}
		tf = &models.Transformation{
			OrganizationID: actor.OrganizationID,
			Type:           models.TransformationDeteriorate,
			ActorID:        actor.UserID,
			Reason:         in.Reason,
			Notes:          in.Notes,
			SourceItemIDs:  []string{source.ID},
			ResultItemIDs:  []string{damaged.ID},
			Details:        details,
		}
		return tx.CreateTransformation(ctx, tf)
	})
	if err != nil {
		return nil, err
	}
	return tf, nil
}

// DisassembleInput is the request for DisassembleItem.
type DisassembleInput struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// DisassembleItem breaks a composite item into its component items. The
// component edges are removed, each component becomes available, and the
// parent ends in the terminal disassembled status.
func (s *TransformationService) DisassembleItem(ctx context.Context, actor *AuthContext, in DisassembleInput) (*models.Transformation, error) {
	if !actor.CanPerformTransformations() {
		return nil, errForbidden("performing transformations")
	}

	var tf *models.Transformation
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		source, err := lockActiveItem(ctx, tx, actor.OrganizationID, in.ItemID)
		if err != nil {
			return err
		}

		comps, err := tx.ListComponents(ctx, source.ID)
		if err != nil {
			return fmt.Errorf("listing components: %w", err)
		}
		if len(comps) == 0 {
			return errNoComponents(source.ID)
		}

		released := make([]models.DisassembledComponent, 0, len(comps))
		resultIDs := make([]string, 0, len(comps))
		for _, c := range comps {
			comp, err := lockActiveItem(ctx, tx, actor.OrganizationID, c.ComponentItemID)
			if err != nil {
				return err
			}
			comp.Status = models.ItemStatusAvailable
			if err := tx.UpdateItem(ctx, comp); err != nil {
				return fmt.Errorf("updating component %s: %w", comp.ID, err)
			}
			released = append(released, models.DisassembledComponent{ItemID: comp.ID, Quantity: c.Quantity})
			resultIDs = append(resultIDs, comp.ID)
		}

		if err := tx.DeleteComponents(ctx, source.ID); err != nil {
			return fmt.Errorf("deleting component edges: %w", err)
		}

		source.Status = models.ItemStatusDisassembled
		if err := tx.UpdateItem(ctx, source); err != nil {
			return fmt.Errorf("updating source item: %w", err)
		}

		details, err := marshalDetails(models.DisassembleDetails{Components: released})
		if err != nil {
			return err
		}
		tf = &models.Transformation{
			OrganizationID: actor.OrganizationID,
			Type:           models.TransformationDisassemble,
			ActorID:        actor.UserID,
			Reason:         in.Reason,
			Notes:          in.Notes,
			SourceItemIDs:  []string{source.ID},
			ResultItemIDs:  resultIDs,
			Details:        details,
		}
		return tx.CreateTransformation(ctx, tf)
	})
	if err != nil {
		return nil, err
	}
	return tf, nil
}
