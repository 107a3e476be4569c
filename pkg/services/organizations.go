package services

import (
	"context"
	"errors"
	"fmt"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

// OrganizationService implements organization and membership management.
type OrganizationService struct {
	store database.Store
}

// NewOrganizationService creates an OrganizationService backed by store.
func NewOrganizationService(store database.Store) *OrganizationService {
	return &OrganizationService{store: store}
}

// CreateOrganization creates an organization owned by the caller and
// records the owner membership in the same transaction.
func (s *OrganizationService) CreateOrganization(ctx context.Context, userID, name, description string) (*models.Organization, error) {
	if name == "" {
		return nil, errValidation("name is required")
	}

	org := &models.Organization{
		Name:        name,
		OwnerID:     userID,
		Description: description,
	}
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		if err := tx.CreateOrganization(ctx, org); err != nil {
			return fmt.Errorf("creating organization: %w", err)
		}
		return tx.AddMember(ctx, &models.OrganizationMembership{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           models.RoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// ListUserOrganizations lists the organizations the user belongs to.
func (s *OrganizationService) ListUserOrganizations(ctx context.Context, userID string) ([]models.Organization, error) {
	return s.store.ListUserOrganizations(ctx, userID)
}

// GetOrganization fetches one organization the caller is a member of.
func (s *OrganizationService) GetOrganization(ctx context.Context, actor *AuthContext) (*models.Organization, error) {
	org, err := s.store.GetOrganization(ctx, actor.OrganizationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &Error{KindNotFound, "ORGANIZATION_NOT_FOUND",
				fmt.Sprintf("organization %s not found", actor.OrganizationID)}
		}
		return nil, err
	}
	return org, nil
}

// AddMember adds a user to the organization with the given role. The
// owner role cannot be granted: it belongs to the organization creator.
func (s *OrganizationService) AddMember(ctx context.Context, actor *AuthContext, userID string, role models.OrgMemberRole) (*models.OrganizationMembership, error) {
	if !actor.CanManageMembers() {
		return nil, errForbidden("managing members")
	}
	if !role.Valid() {
		return nil, errValidation("unknown role %q", role)
	}
	if role == models.RoleOwner {
		return nil, errValidation("the owner role cannot be granted")
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errValidation("user %s does not exist", userID)
		}
		return nil, err
	}

	m := &models.OrganizationMembership{
		OrganizationID: actor.OrganizationID,
		UserID:         userID,
		Role:           role,
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, errDuplicateMember(userID)
		}
		return nil, err
	}
	return m, nil
}

// ListMembers lists the organization's memberships.
func (s *OrganizationService) ListMembers(ctx context.Context, actor *AuthContext) ([]models.OrganizationMembership, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing members")
	}
	return s.store.ListMembers(ctx, actor.OrganizationID)
}

// UpdateMemberRole changes a member's role. Only the organization owner
// may do this, and the owner's own role cannot be changed.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, actor *AuthContext, userID string, role models.OrgMemberRole) error {
	if !actor.IsOwner() {
		return errForbidden("changing member roles")
	}
	if !role.Valid() || role == models.RoleOwner {
		return errValidation("role must be admin or member, got %q", role)
	}
	if userID == actor.UserID {
		return errValidation("the owner role cannot be changed")
	}
	if _, err := s.store.GetMembership(ctx, actor.OrganizationID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errValidation("user %s is not a member", userID)
		}
		return err
	}
	return s.store.UpdateMemberRole(ctx, actor.OrganizationID, userID, role)
}
