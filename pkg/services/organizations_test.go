package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed-backend/pkg/database/databasetest"
	"gearshed-backend/pkg/models"
)

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()
	store := databasetest.New()
	svc := NewOrganizationService(store)

	user := &models.User{Email: "founder@club.test", Password: "x"}
	require.NoError(t, store.CreateUser(ctx, user))

	org, err := svc.CreateOrganization(ctx, user.ID, "Kayak Club", "river gear")
	require.NoError(t, err)
	assert.Equal(t, user.ID, org.OwnerID)

	// The owner membership is written in the same transaction.
	m, err := store.GetMembership(ctx, org.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, m.Role)

	orgs, err := svc.ListUserOrganizations(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)

	_, err = svc.CreateOrganization(ctx, user.ID, "", "")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestMembershipManagement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewOrganizationService(env.store)

	newcomer := &models.User{Email: "new@club.test", Password: "x"}
	require.NoError(t, env.store.CreateUser(ctx, newcomer))

	t.Run("add member", func(t *testing.T) {
		m, err := svc.AddMember(ctx, env.admin, newcomer.ID, models.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, m.Role)

		_, err = svc.AddMember(ctx, env.admin, newcomer.ID, models.RoleMember)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.Equal(t, "DUPLICATE_MEMBER", CodeOf(err))
	})

	t.Run("owner role cannot be granted", func(t *testing.T) {
		other := &models.User{Email: "other@club.test", Password: "x"}
		require.NoError(t, env.store.CreateUser(ctx, other))

		_, err := svc.AddMember(ctx, env.admin, other.ID, models.RoleOwner)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("members cannot manage members", func(t *testing.T) {
		_, err := svc.AddMember(ctx, env.member, "anyone", models.RoleMember)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("role changes are owner-only", func(t *testing.T) {
		require.NoError(t, svc.UpdateMemberRole(ctx, env.admin, newcomer.ID, models.RoleAdmin))

		m, err := env.store.GetMembership(ctx, env.org.ID, newcomer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, m.Role)

		adminCtx := &AuthContext{UserID: newcomer.ID, OrganizationID: env.org.ID, Role: models.RoleAdmin}
		err = svc.UpdateMemberRole(ctx, adminCtx, env.member.UserID, models.RoleAdmin)
		assert.Equal(t, KindForbidden, KindOf(err))

		err = svc.UpdateMemberRole(ctx, env.admin, env.admin.UserID, models.RoleMember)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}
