package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemStatusTerminal(t *testing.T) {
	terminal := []ItemStatus{ItemStatusDiscarded, ItemStatusConsumed, ItemStatusDisassembled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "status %q", s)
	}

	live := []ItemStatus{ItemStatusAvailable, ItemStatusReserved, ItemStatusMaintenance, ItemStatusOnLoan}
	for _, s := range live {
		assert.False(t, s.Terminal(), "status %q", s)
	}
}

func TestItemDeleted(t *testing.T) {
	item := Item{}
	assert.False(t, item.Deleted())

	now := time.Now().UTC()
	item.DeletedAt = &now
	assert.True(t, item.Deleted())
}

func TestReservationStatus(t *testing.T) {
	assert.True(t, ReservationDelivered.Out())
	assert.True(t, ReservationExtended.Out())
	assert.False(t, ReservationPending.Out())
	assert.False(t, ReservationReturned.Out())

	assert.True(t, ReservationReturned.Terminal())
	assert.True(t, ReservationCancelled.Terminal())
	assert.False(t, ReservationExtended.Terminal())
}

func TestOrgMemberRoleValid(t *testing.T) {
	for _, r := range []OrgMemberRole{RoleOwner, RoleAdmin, RoleMember} {
		assert.True(t, r.Valid(), "role %q", r)
	}
	assert.False(t, OrgMemberRole("janitor").Valid())
	assert.False(t, OrgMemberRole("").Valid())
}

func TestInspectionOutcomeValid(t *testing.T) {
	for _, o := range []InspectionOutcome{InspectionOK, InspectionDamaged, InspectionLost} {
		assert.True(t, o.Valid(), "outcome %q", o)
	}
	assert.False(t, InspectionOutcome("shredded").Valid())
}
