package services

import (
	"context"
	"errors"
	"fmt"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

// capabilities is the closed capability table: what each role may do.
// Admins and owners manage; any membership views.
type capabilities struct {
	manageItems            bool
	manageCategories       bool
	performTransformations bool
	manageReservations     bool
	manageMembers          bool
}

var roleCapabilities = map[models.OrgMemberRole]capabilities{
	models.RoleOwner: {
		manageItems:            true,
		manageCategories:       true,
		performTransformations: true,
		manageReservations:     true,
		manageMembers:          true,
	},
	models.RoleAdmin: {
		manageItems:            true,
		manageCategories:       true,
		performTransformations: true,
		manageReservations:     true,
		manageMembers:          true,
	},
	models.RoleMember: {},
}

// AuthContext carries a caller's resolved role within one organization.
// It is computed once per request and passed into every use case, so a
// single logical operation never re-queries the membership.
type AuthContext struct {
	UserID         string
	OrganizationID string
	Role           models.OrgMemberRole
}

func (a *AuthContext) caps() capabilities {
	return roleCapabilities[a.Role]
}

// CanViewItems reports whether the caller may read inventory. Any
// membership grants it.
func (a *AuthContext) CanViewItems() bool { return a.Role.Valid() }

// CanManageItems reports whether the caller may create, update or delete items.
func (a *AuthContext) CanManageItems() bool { return a.caps().manageItems }

// CanManageCategories reports whether the caller may manage categories.
func (a *AuthContext) CanManageCategories() bool { return a.caps().manageCategories }

// CanPerformTransformations reports whether the caller may run
// transformation use cases.
func (a *AuthContext) CanPerformTransformations() bool { return a.caps().performTransformations }

// CanManageReservations reports whether the caller may deliver, extend or
// accept returns on reservations.
func (a *AuthContext) CanManageReservations() bool { return a.caps().manageReservations }

// CanManageMembers reports whether the caller may add organization members.
func (a *AuthContext) CanManageMembers() bool { return a.caps().manageMembers }

// IsOwner reports whether the caller owns the organization.
func (a *AuthContext) IsOwner() bool { return a.Role == models.RoleOwner }

// AuthorizationService resolves a caller's role within an organization.
// Pure lookup: no side effects, no caching beyond the single call.
type AuthorizationService struct {
	store database.Store
}

// NewAuthorizationService creates an AuthorizationService backed by store.
func NewAuthorizationService(store database.Store) *AuthorizationService {
	return &AuthorizationService{store: store}
}

// Resolve looks up the caller's membership in the organization and returns
// the authorization context, or a Forbidden error when the user is not a
// member. The organization owner is treated as having the owner role even
// if the membership row is missing.
func (s *AuthorizationService) Resolve(ctx context.Context, userID, orgID string) (*AuthContext, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &Error{KindNotFound, "ORGANIZATION_NOT_FOUND",
				fmt.Sprintf("organization %s not found", orgID)}
		}
		return nil, fmt.Errorf("resolving organization: %w", err)
	}

	if org.OwnerID == userID {
		return &AuthContext{UserID: userID, OrganizationID: orgID, Role: models.RoleOwner}, nil
	}

	m, err := s.store.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errForbidden("access to this organization")
		}
		return nil, fmt.Errorf("resolving membership: %w", err)
	}

	return &AuthContext{UserID: userID, OrganizationID: orgID, Role: m.Role}, nil
}
