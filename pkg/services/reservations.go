package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

// defaultExtensionDays is applied when an extension request omits the
// number of days.
const defaultExtensionDays = 7

// ReservationService implements the reservation lifecycle: create,
// deliver, extend, return and cancel. Lifecycle mutations lock the
// reservation row so concurrent staff actions serialize instead of
// racing each other through the state machine.
type ReservationService struct {
	store database.Store
}

// NewReservationService creates a ReservationService backed by store.
func NewReservationService(store database.Store) *ReservationService {
	return &ReservationService{store: store}
}

func lockReservation(ctx context.Context, tx database.Store, orgID, id string) (*models.Reservation, error) {
	r, err := tx.GetReservationForUpdate(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errReservationNotFound(id)
		}
		return nil, fmt.Errorf("fetching reservation %s: %w", id, err)
	}
	return r, nil
}

// CreateReservationInput is the request for CreateReservation.
type CreateReservationInput struct {
	ItemIDs   []string  `json:"item_ids"`
	StartDate time.Time `json:"start_date"`
	DueDate   time.Time `json:"due_date"`
	Notes     string    `json:"notes,omitempty"`
}

// CreateReservation opens a pending reservation for the acting user. The
// requested items must exist and not be soft-deleted, but their status is
// not checked or changed here: items only become reserved at delivery.
func (s *ReservationService) CreateReservation(ctx context.Context, actor *AuthContext, in CreateReservationInput) (*models.Reservation, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("creating reservations")
	}
	if len(in.ItemIDs) == 0 {
		return nil, errEmptyItemList()
	}
	if in.StartDate.IsZero() || in.DueDate.IsZero() {
		return nil, errValidation("start_date and due_date are required")
	}
	if in.DueDate.Before(in.StartDate) {
		return nil, errValidation("due_date must not be before start_date")
	}

	var res *models.Reservation
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		for _, id := range in.ItemIDs {
			item, err := tx.GetItem(ctx, actor.OrganizationID, id)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return errItemNotFound(id)
				}
				return fmt.Errorf("fetching item %s: %w", id, err)
			}
			if item.Deleted() {
				return errItemDeleted(id)
			}
		}

		res = &models.Reservation{
			OrganizationID: actor.OrganizationID,
			RequesterID:    actor.UserID,
			Status:         models.ReservationPending,
			Notes:          in.Notes,
			StartDate:      in.StartDate,
			DueDate:        in.DueDate,
		}
		items := make([]models.ReservationItem, 0, len(in.ItemIDs))
		for _, id := range in.ItemIDs {
			items = append(items, models.ReservationItem{
				ItemID: id,
				Source: models.ReservationItemRequested,
			})
		}
		return tx.CreateReservation(ctx, res, items)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetReservation(ctx, actor.OrganizationID, res.ID)
}

// DeliverInput is the request for DeliverReservation. ItemIDs selects
// which of the requested items are actually handed over; AdditionalItemIDs
// adds items that were not part of the original request.
type DeliverInput struct {
	ReservationID     string   `json:"reservation_id"`
	ItemIDs           []string `json:"item_ids"`
	AdditionalItemIDs []string `json:"additional_item_ids,omitempty"`
}

// DeliverReservation hands the selected items over to the requester.
// Only pending reservations can be delivered, at least one item must be
// handed over, and every delivered item moves to the reserved status.
func (s *ReservationService) DeliverReservation(ctx context.Context, actor *AuthContext, in DeliverInput) (*models.Reservation, error) {
	if !actor.CanManageReservations() {
		return nil, errForbidden("delivering reservations")
	}
	if len(in.ItemIDs)+len(in.AdditionalItemIDs) == 0 {
		return nil, errEmptyDelivery()
	}

	err := s.store.WithTx(ctx, func(tx database.Store) error {
		res, err := lockReservation(ctx, tx, actor.OrganizationID, in.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != models.ReservationPending {
			return errInvalidStateTransition(string(res.Status), "deliver")
		}

		bound := make(map[string]bool, len(res.Items))
		for _, ri := range res.Items {
			bound[ri.ItemID] = true
		}
		for _, id := range in.ItemIDs {
			if !bound[id] {
				return errValidation("item %s is not part of the reservation request", id)
			}
		}

		deliver := append(append([]string{}, in.ItemIDs...), in.AdditionalItemIDs...)
		for _, id := range deliver {
			item, err := lockActiveItem(ctx, tx, actor.OrganizationID, id)
			if err != nil {
				return err
			}
			item.Status = models.ItemStatusReserved
			if err := tx.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("updating item %s: %w", id, err)
			}
		}

		if len(in.AdditionalItemIDs) > 0 {
			extra := make([]models.ReservationItem, 0, len(in.AdditionalItemIDs))
			for _, id := range in.AdditionalItemIDs {
				if bound[id] {
					continue
				}
				extra = append(extra, models.ReservationItem{
					ReservationID: res.ID,
					ItemID:        id,
					Source:        models.ReservationItemAdditional,
				})
			}
			if len(extra) > 0 {
				if err := tx.AddReservationItems(ctx, extra); err != nil {
					return fmt.Errorf("adding delivery items: %w", err)
				}
			}
		}

		now := time.Now().UTC()
		res.Status = models.ReservationDelivered
		res.DeliveredBy = &actor.UserID
		res.DeliveredAt = &now
		return tx.UpdateReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetReservation(ctx, actor.OrganizationID, in.ReservationID)
}

// ExtendInput is the request for ExtendReservation.
type ExtendInput struct {
	ReservationID string `json:"reservation_id"`
	Days          int    `json:"days"`
	Motivation    string `json:"motivation,omitempty"`
}

// ExtendReservation pushes the due date of an out reservation forward by
// the given number of days (default 7) and appends an entry to the
// extension history. Extensions stack: each one starts from the due date
// the previous extension produced.
func (s *ReservationService) ExtendReservation(ctx context.Context, actor *AuthContext, in ExtendInput) (*models.Reservation, error) {
	if !actor.CanManageReservations() {
		return nil, errForbidden("extending reservations")
	}
	if in.Days < 0 {
		return nil, errValidation("extension days must not be negative, got %d", in.Days)
	}
	days := in.Days
	if days == 0 {
		days = defaultExtensionDays
	}

	err := s.store.WithTx(ctx, func(tx database.Store) error {
		res, err := lockReservation(ctx, tx, actor.OrganizationID, in.ReservationID)
		if err != nil {
			return err
		}
		if !res.Status.Out() {
			return errInvalidStateTransition(string(res.Status), "extend")
		}

		prev := res.DueDate
		res.DueDate = prev.AddDate(0, 0, days)
		res.Status = models.ReservationExtended
		if err := tx.UpdateReservation(ctx, res); err != nil {
			return fmt.Errorf("updating reservation: %w", err)
		}
		return tx.AddExtension(ctx, &models.ReservationExtension{
			ReservationID:   res.ID,
			ExtendedBy:      actor.UserID,
			Days:            days,
			Motivation:      in.Motivation,
			PreviousDueDate: prev,
			NewDueDate:      res.DueDate,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetReservation(ctx, actor.OrganizationID, in.ReservationID)
}

// ItemInspection records the condition of one item at return time.
type ItemInspection struct {
	ItemID  string                   `json:"item_id"`
	Outcome models.InspectionOutcome `json:"outcome"`
	Notes   string                   `json:"notes,omitempty"`
}

// ReturnInput is the request for ReturnReservation.
type ReturnInput struct {
	ReservationID string           `json:"reservation_id"`
	ReturnedAt    *time.Time       `json:"returned_at,omitempty"`
	Inspections   []ItemInspection `json:"inspections,omitempty"`
}

// ReturnReservation closes an out reservation. Inspection outcomes drive
// the item statuses: ok items become available again, damaged items go to
// maintenance, lost items are discarded and soft-deleted. Bound items with
// no inspection recorded are treated as returned in good condition.
func (s *ReservationService) ReturnReservation(ctx context.Context, actor *AuthContext, in ReturnInput) (*models.Reservation, error) {
	if !actor.CanManageReservations() {
		return nil, errForbidden("returning reservations")
	}
	for _, insp := range in.Inspections {
		if !insp.Outcome.Valid() {
			return nil, errValidation("unknown inspection outcome %q for item %s", insp.Outcome, insp.ItemID)
		}
	}

	err := s.store.WithTx(ctx, func(tx database.Store) error {
		res, err := lockReservation(ctx, tx, actor.OrganizationID, in.ReservationID)
		if err != nil {
			return err
		}
		if !res.Status.Out() {
			return errInvalidStateTransition(string(res.Status), "return")
		}

		bound := make(map[string]bool, len(res.Items))
		for _, ri := range res.Items {
			bound[ri.ItemID] = true
		}
		inspected := make(map[string]ItemInspection, len(in.Inspections))
		for _, insp := range in.Inspections {
			if !bound[insp.ItemID] {
				return errValidation("item %s is not part of the reservation", insp.ItemID)
			}
			inspected[insp.ItemID] = insp
		}

		now := time.Now().UTC()
		for _, ri := range res.Items {
			item, err := tx.GetItemForUpdate(ctx, actor.OrganizationID, ri.ItemID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return errItemNotFound(ri.ItemID)
				}
				return fmt.Errorf("fetching item %s: %w", ri.ItemID, err)
			}

			insp, ok := inspected[ri.ItemID]
			outcome := models.InspectionOK
			if ok {
				outcome = insp.Outcome
			}
			switch outcome {
			case models.InspectionOK:
				item.Status = models.ItemStatusAvailable
			case models.InspectionDamaged:
				item.Status = models.ItemStatusMaintenance
			case models.InspectionLost:
				item.Status = models.ItemStatusDiscarded
				item.DeletedAt = &now
			}
			if err := tx.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("updating item %s: %w", ri.ItemID, err)
			}
			if ok {
				if err := tx.SetItemInspection(ctx, res.ID, ri.ItemID, insp.Outcome, insp.Notes); err != nil {
					return fmt.Errorf("recording inspection for item %s: %w", ri.ItemID, err)
				}
			}
		}

		returnedAt := now
		if in.ReturnedAt != nil {
			returnedAt = in.ReturnedAt.UTC()
		}
		res.Status = models.ReservationReturned
		res.ReturnedBy = &actor.UserID
		res.ReturnedAt = &returnedAt
		return tx.UpdateReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetReservation(ctx, actor.OrganizationID, in.ReservationID)
}

// CancelReservation cancels a pending reservation. The requester may
// cancel their own reservation; otherwise the reservation-management
// capability is required. No items change status since nothing has been
// delivered yet.
func (s *ReservationService) CancelReservation(ctx context.Context, actor *AuthContext, reservationID string) (*models.Reservation, error) {
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		res, err := lockReservation(ctx, tx, actor.OrganizationID, reservationID)
		if err != nil {
			return err
		}
		if res.RequesterID != actor.UserID && !actor.CanManageReservations() {
			return errForbidden("cancelling reservations")
		}
		if res.Status != models.ReservationPending {
			return errInvalidStateTransition(string(res.Status), "cancel")
		}
		res.Status = models.ReservationCancelled
		return tx.UpdateReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetReservation(ctx, actor.OrganizationID, reservationID)
}

// GetReservation fetches one reservation with its items and extensions.
func (s *ReservationService) GetReservation(ctx context.Context, actor *AuthContext, id string) (*models.Reservation, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing reservations")
	}
	res, err := s.store.GetReservation(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errReservationNotFound(id)
		}
		return nil, err
	}
	return res, nil
}

// ListReservations lists the organization's reservations. Members without
// the management capability only see their own.
func (s *ReservationService) ListReservations(ctx context.Context, actor *AuthContext, f database.ReservationFilter) ([]models.Reservation, error) {
	if !actor.CanViewItems() {
		return nil, errForbidden("viewing reservations")
	}
	if !actor.CanManageReservations() {
		f.RequesterID = actor.UserID
	}
	return s.store.ListReservations(ctx, actor.OrganizationID, f)
}
