package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

// ItemHandler serves inventory item CRUD and composite-item components.
type ItemHandler struct {
	inventory *services.InventoryService
	authz     *services.AuthorizationService
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(inventory *services.InventoryService, authz *services.AuthorizationService) *ItemHandler {
	return &ItemHandler{inventory: inventory, authz: authz}
}

// Create registers a new item.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.CreateItemInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	item, err := h.inventory.CreateItem(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, item)
}

// List lists items, optionally narrowed by status, category and the
// include_deleted flag.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	filter := database.ItemFilter{
		Status:         models.ItemStatus(utils.GetQueryParam(r, "status", "")),
		CategoryID:     utils.GetQueryParam(r, "category_id", ""),
		IncludeDeleted: utils.GetQueryParam(r, "include_deleted", "") == "true",
	}
	items, err := h.inventory.ListItems(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, items)
}

// Get fetches one item.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	item, err := h.inventory.GetItem(r.Context(), actor, chi.URLParam(r, "itemID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, item)
}

// Update applies a partial update to an item.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req services.UpdateItemInput
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	item, err := h.inventory.UpdateItem(r.Context(), actor, chi.URLParam(r, "itemID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, item)
}

// Delete soft-deletes an item.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	if err := h.inventory.DeleteItem(r.Context(), actor, itemID); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"id": itemID})
}

// AddComponent links a component item into a composite parent.
func (h *ItemHandler) AddComponent(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	var req struct {
		ComponentItemID string `json:"component_item_id"`
		Quantity        int    `json:"quantity,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.ComponentItemID == "" {
		utils.WriteValidationErrorResponse(w, "component_item_id is required", "")
		return
	}

	edge, err := h.inventory.AddComponent(r.Context(), actor, chi.URLParam(r, "itemID"), req.ComponentItemID, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, edge)
}

// ListComponents lists the component edges of a composite item.
func (h *ItemHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	comps, err := h.inventory.ListComponents(r.Context(), actor, chi.URLParam(r, "itemID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, comps)
}

// RemoveComponent unlinks a component from its parent.
func (h *ItemHandler) RemoveComponent(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveAuthContext(w, r, h.authz)
	if !ok {
		return
	}

	parentID := chi.URLParam(r, "itemID")
	componentID := chi.URLParam(r, "componentID")
	if err := h.inventory.RemoveComponent(r.Context(), actor, parentID, componentID); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"parent_item_id":    parentID,
		"component_item_id": componentID,
	})
}
