package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// ReservationHandler serves the reservation lifecycle.
type ReservationHandler struct {
	reservations *services.ReservationService
	authz        *services.AuthorizationService
}

// NewReservationHandler creates a ReservationHandler.
func NewReservationHandler(reservations *services.ReservationService, authz *services.AuthorizationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, authz: authz}
}

// Create opens a pending reservation for the caller.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.CreateReservationInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	res, err := h.reservations.CreateReservation(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, res)
}

// List lists reservations visible to the caller.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	filter := database.ReservationFilter{
		Status:      models.ReservationStatus(utils.GetQueryParam(r, "status", "")),
		RequesterID: utils.GetQueryParam(r, "requester_id", ""),
	}
	reservations, err := h.reservations.ListReservations(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, reservations)
}

// Get fetches one reservation with its items and extension history.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	res, err := h.reservations.GetReservation(r.Context(), actor, chi.URLParam(r, "reservationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// Deliver hands the reserved items over to the requester.
func (h *ReservationHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.DeliverInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.ReservationID = chi.URLParam(r, "reservationID")

	res, err := h.reservations.DeliverReservation(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// Extend pushes the due date forward.
func (h *ReservationHandler) Extend(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.ExtendInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.ReservationID = chi.URLParam(r, "reservationID")

	res, err := h.reservations.ExtendReservation(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// Return closes an out reservation with per-item inspections.
func (h *ReservationHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.ReturnInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.ReservationID = chi.URLParam(r, "reservationID")

	res, err := h.reservations.ReturnReservation(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// Cancel cancels a pending reservation.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	res, err := h.reservations.CancelReservation(r.Context(), actor, chi.URLParam(r, "reservationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}
