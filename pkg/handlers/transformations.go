package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// TransformationHandler serves the transformation use cases and the
// resulting audit trail.
type TransformationHandler struct {
	transformations *services.TransformationService
	authz           *services.AuthorizationService
}

// NewTransformationHandler creates a TransformationHandler.
func NewTransformationHandler(transformations *services.TransformationService, authz *services.AuthorizationService) *TransformationHandler {
	return &TransformationHandler{transformations: transformations, authz: authz}
}

// Subdivide splits part of an item's value into new child items.
func (h *TransformationHandler) Subdivide(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.SubdivideInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	tf, err := h.transformations.SubdivideItem(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, tf)
}

// Donate hands a batch of items over to an external party.
func (h *TransformationHandler) Donate(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.DonateInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	tf, err := h.transformations.DonateItems(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, tf)
}

// Deteriorate writes off the damaged portion of an item.
func (h *TransformationHandler) Deteriorate(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.DeteriorateInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	tf, err := h.transformations.DeteriorateItem(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, tf)
}

// Disassemble breaks a composite item into its components.
func (h *TransformationHandler) Disassemble(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.DisassembleInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	tf, err := h.transformations.DisassembleItem(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, tf)
}

// List lists the organization's transformation audit trail.
func (h *TransformationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	filter := database.TransformationFilter{
		Type:    models.TransformationType(utils.GetQueryParam(r, "type", "")),
		ActorID: utils.GetQueryParam(r, "actor_id", ""),
		ItemID:  utils.GetQueryParam(r, "item_id", ""),
	}
	tfs, err := h.transformations.ListTransformations(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, tfs)
}

// Get fetches one transformation record.
func (h *TransformationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	tf, err := h.transformations.GetTransformation(r.Context(), actor, chi.URLParam(r, "transformationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, tf)
}
