package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

func reservationDates() (time.Time, time.Time) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 14)
}

// createTestReservation opens a pending reservation for the member over
// the given items.
func createTestReservation(t testingT, env *testEnv, items ...*models.Item) *models.Reservation {
	t.Helper()
	svc := NewReservationService(env.store)
	start, due := reservationDates()

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	res, err := svc.CreateReservation(context.Background(), env.member, CreateReservationInput{
		ItemIDs:   ids,
		StartDate: start,
		DueDate:   due,
	})
	require.NoError(t, err)
	return res
}

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a pending reservation without touching items", func(t *testing.T) {
		env := newTestEnv(t)
		item := env.addItem(t, "tent-001", 1)

		res := createTestReservation(t, env, item)
		assert.Equal(t, models.ReservationPending, res.Status)
		assert.Equal(t, env.member.UserID, res.RequesterID)
		require.Len(t, res.Items, 1)
		assert.Equal(t, models.ReservationItemRequested, res.Items[0].Source)

		got, err := env.store.GetItem(ctx, env.org.ID, item.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusAvailable, got.Status)
	})

	t.Run("validates dates and items", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-002", 1)
		start, due := reservationDates()

		_, err := svc.CreateReservation(ctx, env.member, CreateReservationInput{
			ItemIDs: []string{item.ID}, StartDate: due, DueDate: start,
		})
		assert.Equal(t, KindValidation, KindOf(err))

		_, err = svc.CreateReservation(ctx, env.member, CreateReservationInput{
			StartDate: start, DueDate: due,
		})
		assert.Equal(t, "EMPTY_ITEM_LIST", CodeOf(err))

		_, err = svc.CreateReservation(ctx, env.member, CreateReservationInput{
			ItemIDs: []string{"ghost"}, StartDate: start, DueDate: due,
		})
		assert.Equal(t, "ITEM_NOT_FOUND", CodeOf(err))
	})
}

func TestDeliverReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("marks items reserved and records the deliverer", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-003", 1)
		extra := env.addItem(t, "lamp-001", 1)
		res := createTestReservation(t, env, item)

		got, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID:     res.ID,
			ItemIDs:           []string{item.ID},
			AdditionalItemIDs: []string{extra.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ReservationDelivered, got.Status)
		require.NotNil(t, got.DeliveredBy)
		assert.Equal(t, env.admin.UserID, *got.DeliveredBy)
		assert.NotNil(t, got.DeliveredAt)

		require.Len(t, got.Items, 2)
		sources := map[string]string{}
		for _, ri := range got.Items {
			sources[ri.ItemID] = ri.Source
		}
		assert.Equal(t, models.ReservationItemRequested, sources[item.ID])
		assert.Equal(t, models.ReservationItemAdditional, sources[extra.ID])

		for _, id := range []string{item.ID, extra.ID} {
			gotItem, err := env.store.GetItem(ctx, env.org.ID, id)
			require.NoError(t, err)
			assert.Equal(t, models.ItemStatusReserved, gotItem.Status)
		}
	})

	t.Run("requires at least one item", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-004", 1)
		res := createTestReservation(t, env, item)

		_, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{ReservationID: res.ID})
		assert.Equal(t, "EMPTY_DELIVERY", CodeOf(err))
	})

	t.Run("only pending reservations can be delivered", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-005", 1)
		res := createTestReservation(t, env, item)

		_, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{item.ID},
		})
		require.NoError(t, err)

		_, err = svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{item.ID},
		})
		assert.Equal(t, "INVALID_STATE_TRANSITION", CodeOf(err))
		assert.Equal(t, KindStateTransition, KindOf(err))
	})

	t.Run("members may not deliver", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-006", 1)
		res := createTestReservation(t, env, item)

		_, err := svc.DeliverReservation(ctx, env.member, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{item.ID},
		})
		assert.Equal(t, KindForbidden, KindOf(err))
	})
}

func TestExtendReservation(t *testing.T) {
	ctx := context.Background()

	deliver := func(t *testing.T, env *testEnv, res *models.Reservation, item *models.Item) {
		t.Helper()
		svc := NewReservationService(env.store)
		_, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{item.ID},
		})
		require.NoError(t, err)
	}

	t.Run("pushes the due date and appends history", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-101", 1)
		res := createTestReservation(t, env, item)
		deliver(t, env, res, item)

		got, err := svc.ExtendReservation(ctx, env.admin, ExtendInput{
			ReservationID: res.ID, Days: 3, Motivation: "weather",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ReservationExtended, got.Status)
		assert.Equal(t, res.DueDate.AddDate(0, 0, 3), got.DueDate)
		require.Len(t, got.Extensions, 1)
		assert.Equal(t, res.DueDate, got.Extensions[0].PreviousDueDate)
		assert.Equal(t, got.DueDate, got.Extensions[0].NewDueDate)
	})

	t.Run("defaults to seven days", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-102", 1)
		res := createTestReservation(t, env, item)
		deliver(t, env, res, item)

		got, err := svc.ExtendReservation(ctx, env.admin, ExtendInput{ReservationID: res.ID})
		require.NoError(t, err)
		assert.Equal(t, res.DueDate.AddDate(0, 0, 7), got.DueDate)
	})

	t.Run("rejects negative days and pending reservations", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-103", 1)
		res := createTestReservation(t, env, item)

		_, err := svc.ExtendReservation(ctx, env.admin, ExtendInput{ReservationID: res.ID, Days: -1})
		assert.Equal(t, KindValidation, KindOf(err))

		_, err = svc.ExtendReservation(ctx, env.admin, ExtendInput{ReservationID: res.ID})
		assert.Equal(t, "INVALID_STATE_TRANSITION", CodeOf(err))
	})
}

// Property: sequential extensions stack. After any sequence of
// extensions the due date equals the original plus the sum of the days,
// and the history records a contiguous chain.
func TestExtendReservationStacks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		ctx := context.Background()

		item := env.addItem(t, "bulk-tent", 1)
		res := createTestReservation(t, env, item)
		_, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{item.ID},
		})
		if err != nil {
			t.Fatalf("deliver failed: %v", err)
		}

		days := rapid.SliceOfN(rapid.IntRange(1, 30), 1, 6).Draw(t, "days")
		total := 0
		for _, d := range days {
			if _, err := svc.ExtendReservation(ctx, env.admin, ExtendInput{
				ReservationID: res.ID, Days: d,
			}); err != nil {
				t.Fatalf("extend failed: %v", err)
			}
			total += d
		}

		got, err := env.store.GetReservation(ctx, env.org.ID, res.ID)
		if err != nil {
			t.Fatalf("fetching reservation: %v", err)
		}
		if want := res.DueDate.AddDate(0, 0, total); !got.DueDate.Equal(want) {
			t.Fatalf("due date %v, want %v", got.DueDate, want)
		}
		if len(got.Extensions) != len(days) {
			t.Fatalf("extension count %d, want %d", len(got.Extensions), len(days))
		}
		prev := res.DueDate
		for i, e := range got.Extensions {
			if !e.PreviousDueDate.Equal(prev) {
				t.Fatalf("extension %d previous due %v, want %v", i, e.PreviousDueDate, prev)
			}
			if !e.NewDueDate.Equal(prev.AddDate(0, 0, e.Days)) {
				t.Fatalf("extension %d new due %v not previous plus days", i, e.NewDueDate)
			}
			prev = e.NewDueDate
		}
	})
}

func TestReturnReservation(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *ReservationService, *models.Reservation, *models.Item, *models.Item, *models.Item) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		ok := env.addItem(t, "ok-item", 1)
		damaged := env.addItem(t, "damaged-item", 1)
		lost := env.addItem(t, "lost-item", 1)
		res := createTestReservation(t, env, ok, damaged, lost)
		_, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{ok.ID, damaged.ID, lost.ID},
		})
		require.NoError(t, err)
		return env, svc, res, ok, damaged, lost
	}

	t.Run("inspection outcomes drive item statuses", func(t *testing.T) {
		env, svc, res, okItem, damagedItem, lostItem := setup(t)

		got, err := svc.ReturnReservation(ctx, env.admin, ReturnInput{
			ReservationID: res.ID,
			Inspections: []ItemInspection{
				{ItemID: damagedItem.ID, Outcome: models.InspectionDamaged, Notes: "bent pole"},
				{ItemID: lostItem.ID, Outcome: models.InspectionLost},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ReservationReturned, got.Status)
		require.NotNil(t, got.ReturnedBy)
		assert.Equal(t, env.admin.UserID, *got.ReturnedBy)

		gotOK, err := env.store.GetItem(ctx, env.org.ID, okItem.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusAvailable, gotOK.Status)

		gotDamaged, err := env.store.GetItem(ctx, env.org.ID, damagedItem.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusMaintenance, gotDamaged.Status)

		gotLost, err := env.store.GetItem(ctx, env.org.ID, lostItem.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItemStatusDiscarded, gotLost.Status)
		assert.NotNil(t, gotLost.DeletedAt)

		for _, ri := range got.Items {
			if ri.ItemID == damagedItem.ID {
				require.NotNil(t, ri.InspectionOutcome)
				assert.Equal(t, models.InspectionDamaged, *ri.InspectionOutcome)
				assert.Equal(t, "bent pole", ri.InspectionNotes)
			}
		}
	})

	t.Run("rejects unknown outcomes and foreign items", func(t *testing.T) {
		env, svc, res, _, _, _ := setup(t)

		_, err := svc.ReturnReservation(ctx, env.admin, ReturnInput{
			ReservationID: res.ID,
			Inspections:   []ItemInspection{{ItemID: "whatever", Outcome: "shredded"}},
		})
		assert.Equal(t, KindValidation, KindOf(err))

		stranger := env.addItem(t, "stranger", 1)
		_, err = svc.ReturnReservation(ctx, env.admin, ReturnInput{
			ReservationID: res.ID,
			Inspections:   []ItemInspection{{ItemID: stranger.ID, Outcome: models.InspectionOK}},
		})
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("terminal reservations cannot be returned again", func(t *testing.T) {
		env, svc, res, _, _, _ := setup(t)

		_, err := svc.ReturnReservation(ctx, env.admin, ReturnInput{ReservationID: res.ID})
		require.NoError(t, err)

		_, err = svc.ReturnReservation(ctx, env.admin, ReturnInput{ReservationID: res.ID})
		assert.Equal(t, "INVALID_STATE_TRANSITION", CodeOf(err))
	})
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("requester cancels their own pending reservation", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-201", 1)
		res := createTestReservation(t, env, item)

		got, err := svc.CancelReservation(ctx, env.member, res.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationCancelled, got.Status)
	})

	t.Run("other members may not cancel", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-202", 1)
		res := createTestReservation(t, env, item)

		other := &models.User{Email: "other@club.test", Password: "x"}
		require.NoError(t, env.store.CreateUser(ctx, other))
		otherCtx := &AuthContext{UserID: other.ID, OrganizationID: env.org.ID, Role: models.RoleMember}

		_, err := svc.CancelReservation(ctx, otherCtx, res.ID)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("delivered reservations cannot be cancelled", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewReservationService(env.store)
		item := env.addItem(t, "tent-203", 1)
		res := createTestReservation(t, env, item)

		_, err := svc.DeliverReservation(ctx, env.admin, DeliverInput{
			ReservationID: res.ID, ItemIDs: []string{item.ID},
		})
		require.NoError(t, err)

		_, err = svc.CancelReservation(ctx, env.member, res.ID)
		assert.Equal(t, "INVALID_STATE_TRANSITION", CodeOf(err))
	})
}

func TestListReservationsVisibility(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewReservationService(env.store)

	mine := env.addItem(t, "tent-301", 1)
	createTestReservation(t, env, mine)

	// A reservation by the admin, invisible to the plain member's listing.
	theirs := env.addItem(t, "tent-302", 1)
	start, due := reservationDates()
	_, err := svc.CreateReservation(ctx, env.admin, CreateReservationInput{
		ItemIDs: []string{theirs.ID}, StartDate: start, DueDate: due,
	})
	require.NoError(t, err)

	all, err := svc.ListReservations(ctx, env.admin, database.ReservationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.ListReservations(ctx, env.member, database.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, env.member.UserID, own[0].RequesterID)
}
