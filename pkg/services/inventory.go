package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

// InventoryService implements item and category management.
type InventoryService struct {
	store database.Store
}

// NewInventoryService creates an InventoryService backed by store.
func NewInventoryService(store database.Store) *InventoryService {
	return &InventoryService{store: store}
}

// CreateItemInput is the request for CreateItem.
type CreateItemInput struct {
	Identifier string  `json:"identifier"`
	Name       string  `json:"name"`
	CategoryID *string `json:"category_id,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Value      int64   `json:"value"`
	Notes      string  `json:"notes,omitempty"`
}

// CreateItem registers a new item in the organization's inventory.
func (s *InventoryService) CreateItem(ctx context.Context, actor *AuthContext, in CreateItemInput) (*models.Item, error) {
	if !actor.CanManageItems() {
		return nil, errForbidden("managing items")
	}
	if in.Identifier == "" {
		return nil, errValidation("identifier is required")
	}
	if in.Name == "" {
		return nil, errValidation("name is required")
	}
	if in.Value < 0 {
		return nil, errValidation("value must not be negative, got %d", in.Value)
	}

	if in.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, actor.OrganizationID, *in.CategoryID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, errValidation("category %s does not exist", *in.CategoryID)
			}
			return nil, err
		}
	}

	item := &models.Item{
		OrganizationID: actor.OrganizationID,
		Identifier:     in.Identifier,
		Name:           in.Name,
		CategoryID:     in.CategoryID,
		Status:         models.ItemStatusAvailable,
		Unit:           in.Unit,
		Value:          in.Value,
		Notes:          in.Notes,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, errDuplicateIdentifier(in.Identifier)
		}
		return nil, err
	}
	return item, nil
}

// GetItem fetches one item by id.
func (s *InventoryService) GetItem(ctx context.Context, actor *AuthContext, id string) (*models.Item, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing items")
	}
	item, err := s.store.GetItem(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errItemNotFound(id)
		}
		return nil, err
	}
	return item, nil
}

// ListItems lists the organization's items, narrowed by f.
func (s *InventoryService) ListItems(ctx context.Context, actor *AuthContext, f database.ItemFilter) ([]models.Item, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing items")
	}
	return s.store.ListItems(ctx, actor.OrganizationID, f)
}

// UpdateItemInput is the request for UpdateItem. Nil fields are left
// unchanged.
type UpdateItemInput struct {
	Name       *string            `json:"name,omitempty"`
	CategoryID *string            `json:"category_id,omitempty"`
	Status     *models.ItemStatus `json:"status,omitempty"`
	Unit       *string            `json:"unit,omitempty"`
	Value      *int64             `json:"value,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
}

// UpdateItem applies a partial update to an item. Terminal statuses are
// owned by the transformation and reservation flows and cannot be set
// here; deleted items cannot be edited at all.
func (s *InventoryService) UpdateItem(ctx context.Context, actor *AuthContext, id string, in UpdateItemInput) (*models.Item, error) {
	if !actor.CanManageItems() {
		return nil, errForbidden("managing items")
	}
	if in.Value != nil && *in.Value < 0 {
		return nil, errValidation("value must not be negative, got %d", *in.Value)
	}
	if in.Status != nil && in.Status.Terminal() {
		return nil, errValidation("status %q cannot be set directly", *in.Status)
	}

	var item *models.Item
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		var err error
		item, err = lockActiveItem(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			item.Name = *in.Name
		}
		if in.CategoryID != nil {
			if _, err := tx.GetCategory(ctx, actor.OrganizationID, *in.CategoryID); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return errValidation("category %s does not exist", *in.CategoryID)
				}
				return err
			}
			item.CategoryID = in.CategoryID
		}
		if in.Status != nil {
			item.Status = *in.Status
		}
		if in.Unit != nil {
			item.Unit = *in.Unit
		}
		if in.Value != nil {
			item.Value = *in.Value
		}
		if in.Notes != nil {
			item.Notes = *in.Notes
		}
		return tx.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem soft-deletes an item. The row and its transformation history
// survive; the item just stops showing up in default listings.
func (s *InventoryService) DeleteItem(ctx context.Context, actor *AuthContext, id string) error {
	if !actor.CanManageItems() {
		return errForbidden("managing items")
	}
	return s.store.WithTx(ctx, func(tx database.Store) error {
		if _, err := lockActiveItem(ctx, tx, actor.OrganizationID, id); err != nil {
			return err
		}
		return tx.SoftDeleteItem(ctx, actor.OrganizationID, id, time.Now().UTC())
	})
}

// AddComponent links a component item into a composite parent.
func (s *InventoryService) AddComponent(ctx context.Context, actor *AuthContext, parentID, componentID string, quantity int) (*models.ItemComponent, error) {
	if !actor.CanManageItems() {
		return nil, errForbidden("managing items")
	}
	if parentID == componentID {
		return nil, errValidation("an item cannot be a component of itself")
	}
	if quantity <= 0 {
		quantity = 1
	}

	edge := &models.ItemComponent{
		ParentItemID:    parentID,
		ComponentItemID: componentID,
		Quantity:        quantity,
	}
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		if _, err := lockActiveItem(ctx, tx, actor.OrganizationID, parentID); err != nil {
			return err
		}
		if _, err := lockActiveItem(ctx, tx, actor.OrganizationID, componentID); err != nil {
			return err
		}
		if err := tx.AddComponent(ctx, edge); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return errValidation("item %s is already a component of %s", componentID, parentID)
			}
			return fmt.Errorf("adding component: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// RemoveComponent unlinks a component from its parent.
func (s *InventoryService) RemoveComponent(ctx context.Context, actor *AuthContext, parentID, componentID string) error {
	if !actor.CanManageItems() {
		return errForbidden("managing items")
	}
	err := s.store.RemoveComponent(ctx, parentID, componentID)
	if errors.Is(err, database.ErrNotFound) {
		return errValidation("item %s is not a component of %s", componentID, parentID)
	}
	return err
}

// ListComponents lists the component edges of a composite item.
func (s *InventoryService) ListComponents(ctx context.Context, actor *AuthContext, parentID string) ([]models.ItemComponent, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing items")
	}
	if _, err := s.GetItem(ctx, actor, parentID); err != nil {
		return nil, err
	}
	return s.store.ListComponents(ctx, parentID)
}

// CreateCategory adds an item category to the organization.
func (s *InventoryService) CreateCategory(ctx context.Context, actor *AuthContext, name, description string) (*models.Category, error) {
	if !actor.CanManageCategories() {
		return nil, errForbidden("managing categories")
	}
	if name == "" {
		return nil, errValidation("name is required")
	}
	c := &models.Category{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		Description:    description,
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, errValidation("category %q already exists", name)
		}
		return nil, err
	}
	return c, nil
}

// ListCategories lists the organization's categories.
func (s *InventoryService) ListCategories(ctx context.Context, actor *AuthContext) ([]models.Category, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing categories")
	}
	return s.store.ListCategories(ctx, actor.OrganizationID)
}

// UpdateCategory renames a category or changes its description.
func (s *InventoryService) UpdateCategory(ctx context.Context, actor *AuthContext, id, name, description string) (*models.Category, error) {
	if !actor.CanManageCategories() {
		return nil, errForbidden("managing categories")
	}
	if name == "" {
		return nil, errValidation("name is required")
	}
	c, err := s.store.GetCategory(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errValidation("category %s does not exist", id)
		}
		return nil, err
	}
	c.Name = name
	c.Description = description
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category. Items keep working without one:
// the store nulls out their category reference.
func (s *InventoryService) DeleteCategory(ctx context.Context, actor *AuthContext, id string) error {
	if !actor.CanManageCategories() {
		return errForbidden("managing categories")
	}
	err := s.store.DeleteCategory(ctx, actor.OrganizationID, id)
	if errors.Is(err, database.ErrNotFound) {
		return errValidation("category %s does not exist", id)
	}
	return err
}
