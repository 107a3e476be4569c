package database

import (
	"context"
	"errors"
	"time"

	"gearshed-backend/pkg/models"
)

// Sentinel errors returned by the store. Services translate these into
// their domain error taxonomy.
var (
	ErrNotFound  = errors.New("database: not found")
	ErrDuplicate = errors.New("database: duplicate key")
)

// ItemFilter narrows ListItems. Zero values mean "no filter".
// Soft-deleted items are excluded unless IncludeDeleted is set.
type ItemFilter struct {
	Status         models.ItemStatus
	CategoryID     string
	IncludeDeleted bool
}

// TransformationFilter narrows ListTransformations.
type TransformationFilter struct {
	Type    models.TransformationType
	ActorID string
	// ItemID matches transformations that reference the item as either
	// source or result.
	ItemID string
}

// ReservationFilter narrows ListReservations.
type ReservationFilter struct {
	Status      models.ReservationStatus
	RequesterID string
}

// UserRepository persists user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// OrganizationRepository persists organizations and memberships.
type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListUserOrganizations(ctx context.Context, userID string) ([]models.Organization, error)
	AddMember(ctx context.Context, m *models.OrganizationMembership) error
	GetMembership(ctx context.Context, orgID, userID string) (*models.OrganizationMembership, error)
	ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMembership, error)
	UpdateMemberRole(ctx context.Context, orgID, userID string, role models.OrgMemberRole) error
}

// CategoryRepository persists item categories.
type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, orgID, id string) (*models.Category, error)
	ListCategories(ctx context.Context, orgID string) ([]models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, orgID, id string) error
}

// ItemRepository persists items and composite-item component edges.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, orgID, id string) (*models.Item, error)
	// GetItemForUpdate locks the item row for the duration of the
	// surrounding transaction. Only meaningful inside WithTx.
	GetItemForUpdate(ctx context.Context, orgID, id string) (*models.Item, error)
	GetItemByIdentifier(ctx context.Context, orgID, identifier string) (*models.Item, error)
	ListItems(ctx context.Context, orgID string, f ItemFilter) ([]models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	SoftDeleteItem(ctx context.Context, orgID, id string, at time.Time) error

	AddComponent(ctx context.Context, c *models.ItemComponent) error
	RemoveComponent(ctx context.Context, parentItemID, componentItemID string) error
	ListComponents(ctx context.Context, parentItemID string) ([]models.ItemComponent, error)
	DeleteComponents(ctx context.Context, parentItemID string) error
}

// TransformationRepository persists the immutable transformation audit
// trail. There are intentionally no update or delete operations.
type TransformationRepository interface {
	CreateTransformation(ctx context.Context, t *models.Transformation) error
	GetTransformation(ctx context.Context, orgID, id string) (*models.Transformation, error)
	ListTransformations(ctx context.Context, orgID string, f TransformationFilter) ([]models.Transformation, error)
}

// ReservationRepository persists reservations, their item bindings and
// extension history.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, r *models.Reservation, items []models.ReservationItem) error
	GetReservation(ctx context.Context, orgID, id string) (*models.Reservation, error)
	// GetReservationForUpdate locks the reservation row for the duration
	// of the surrounding transaction. Only meaningful inside WithTx.
	GetReservationForUpdate(ctx context.Context, orgID, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, orgID string, f ReservationFilter) ([]models.Reservation, error)
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	AddReservationItems(ctx context.Context, items []models.ReservationItem) error
	SetItemInspection(ctx context.Context, reservationID, itemID string, outcome models.InspectionOutcome, notes string) error
	AddExtension(ctx context.Context, e *models.ReservationExtension) error
}

// Store is the single persistence handle passed through the application.
// WithTx runs fn against a transaction-scoped store; every use case that
// writes more than one row runs inside it, so either all writes commit or
// none do. Nested WithTx calls join the outer transaction.
type Store interface {
	UserRepository
	OrganizationRepository
	CategoryRepository
	ItemRepository
	TransformationRepository
	ReservationRepository

	WithTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Close() error
}
