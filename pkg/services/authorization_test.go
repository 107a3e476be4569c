package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed-backend/pkg/database/databasetest"
	"gearshed-backend/pkg/models"
)

func TestAuthContextCapabilities(t *testing.T) {
	tests := []struct {
		role       models.OrgMemberRole
		view       bool
		manage     bool
		transform  bool
		reserveOps bool
		members    bool
	}{
		{models.RoleOwner, true, true, true, true, true},
		{models.RoleAdmin, true, true, true, true, true},
		{models.RoleMember, true, false, false, false, false},
		{"intruder", false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			a := &AuthContext{UserID: "u", OrganizationID: "o", Role: tt.role}
			assert.Equal(t, tt.view, a.CanViewItems())
			assert.Equal(t, tt.manage, a.CanManageItems())
			assert.Equal(t, tt.manage, a.CanManageCategories())
			assert.Equal(t, tt.transform, a.CanPerformTransformations())
			assert.Equal(t, tt.reserveOps, a.CanManageReservations())
			assert.Equal(t, tt.members, a.CanManageMembers())
		})
	}
}

func TestAuthorizationResolve(t *testing.T) {
	ctx := context.Background()
	store := databasetest.New()
	authz := NewAuthorizationService(store)

	owner := &models.User{Email: "owner@club.test", Password: "x"}
	require.NoError(t, store.CreateUser(ctx, owner))
	admin := &models.User{Email: "admin@club.test", Password: "x"}
	require.NoError(t, store.CreateUser(ctx, admin))
	stranger := &models.User{Email: "stranger@club.test", Password: "x"}
	require.NoError(t, store.CreateUser(ctx, stranger))

	org := &models.Organization{Name: "Club", OwnerID: owner.ID}
	require.NoError(t, store.CreateOrganization(ctx, org))
	require.NoError(t, store.AddMember(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: admin.ID, Role: models.RoleAdmin,
	}))

	t.Run("owner resolves without a membership row", func(t *testing.T) {
		a, err := authz.Resolve(ctx, owner.ID, org.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleOwner, a.Role)
		assert.True(t, a.IsOwner())
	})

	t.Run("member resolves to its membership role", func(t *testing.T) {
		a, err := authz.Resolve(ctx, admin.ID, org.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, a.Role)
		assert.False(t, a.IsOwner())
	})

	t.Run("non-members are forbidden", func(t *testing.T) {
		_, err := authz.Resolve(ctx, stranger.ID, org.ID)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("unknown organizations are not found", func(t *testing.T) {
		_, err := authz.Resolve(ctx, owner.ID, "no-such-org")
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.Equal(t, "ORGANIZATION_NOT_FOUND", CodeOf(err))
	})
}
