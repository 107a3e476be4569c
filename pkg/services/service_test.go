package services

import (
	"context"

	"github.com/stretchr/testify/require"

	"gearshed-backend/pkg/database/databasetest"
	"gearshed-backend/pkg/models"
)

// testingT is the subset of *testing.T the fixtures need. *rapid.T
// satisfies it too, so property tests can share the same setup.
type testingT interface {
	Helper()
	Errorf(format string, args ...interface{})
	FailNow()
}

// testEnv is the common fixture: one organization with an admin and a
// plain member, backed by the in-memory store.
type testEnv struct {
	store *databasetest.Store
	org   *models.Organization

	admin  *AuthContext
	member *AuthContext
}

func newTestEnv(t testingT) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := databasetest.New()

	owner := &models.User{Email: "owner@club.test", Password: "x", Name: "Owner"}
	require.NoError(t, store.CreateUser(ctx, owner))
	memberUser := &models.User{Email: "member@club.test", Password: "x", Name: "Member"}
	require.NoError(t, store.CreateUser(ctx, memberUser))

	org := &models.Organization{Name: "Alpine Club", OwnerID: owner.ID}
	require.NoError(t, store.CreateOrganization(ctx, org))
	require.NoError(t, store.AddMember(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: owner.ID, Role: models.RoleOwner,
	}))
	require.NoError(t, store.AddMember(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: memberUser.ID, Role: models.RoleMember,
	}))

	return &testEnv{
		store: store,
		org:   org,
		admin: &AuthContext{UserID: owner.ID, OrganizationID: org.ID, Role: models.RoleOwner},
		member: &AuthContext{
			UserID: memberUser.ID, OrganizationID: org.ID, Role: models.RoleMember,
		},
	}
}

// addItem inserts an available item and returns it.
func (e *testEnv) addItem(t testingT, identifier string, value int64) *models.Item {
	t.Helper()
	item := &models.Item{
		OrganizationID: e.org.ID,
		Identifier:     identifier,
		Name:           "Item " + identifier,
		Status:         models.ItemStatusAvailable,
		Unit:           "m",
		Value:          value,
	}
	require.NoError(t, e.store.CreateItem(context.Background(), item))
	return item
}
